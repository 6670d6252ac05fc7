package boardcmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Command groups board helpers: show the columns, move a card.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Board utilities (show columns, move cards)",
	}

	cmd.AddCommand(showCommand())
	cmd.AddCommand(moveCommand())
	return cmd
}

type boardView struct {
	Columns []struct {
		Status       string `json:"status"`
		Appointments []struct {
			ID             string     `json:"id"`
			TechnicianID   *string    `json:"technician_id"`
			ScheduledStart time.Time  `json:"scheduled_start"`
			ScheduledEnd   time.Time  `json:"scheduled_end"`
			Position       int        `json:"position"`
			Version        int64      `json:"version"`
			CheckInAt      *time.Time `json:"check_in_at"`
		} `json:"appointments"`
	} `json:"columns"`
}

func showCommand() *cobra.Command {
	var (
		apiURL     string
		tenantID   string
		from       string
		to         string
		technician string
	)

	c := &cobra.Command{
		Use:   "show",
		Short: "Fetch and render the status board for a day range",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("from", from)
			query.Set("to", to)
			if technician != "" {
				query.Set("technician_id", technician)
			}

			body, err := doRequest(http.MethodGet, apiURL+"/api/v1/board?"+query.Encode(), tenantID, nil)
			if err != nil {
				return err
			}

			var view boardView
			if err := json.Unmarshal(body, &view); err != nil {
				return fmt.Errorf("decode board: %w", err)
			}

			header := color.New(color.FgCyan, color.Bold)
			dim := color.New(color.Faint)
			for _, column := range view.Columns {
				header.Printf("%s (%d)\n", column.Status, len(column.Appointments))
				for _, appt := range column.Appointments {
					tech := "unassigned"
					if appt.TechnicianID != nil {
						tech = *appt.TechnicianID
					}
					fmt.Printf("  %s  %s - %s  pos=%d v=%d\n",
						appt.ID,
						appt.ScheduledStart.Local().Format("15:04"),
						appt.ScheduledEnd.Local().Format("15:04"),
						appt.Position,
						appt.Version,
					)
					dim.Printf("    technician: %s\n", tech)
				}
				fmt.Println()
			}
			return nil
		},
	}

	c.Flags().StringVar(&apiURL, "api-url", "http://localhost:3000", "Board API base URL")
	c.Flags().StringVar(&tenantID, "tenant", "", "Tenant id (uuid)")
	c.Flags().StringVar(&from, "from", "", "Range start (RFC3339)")
	c.Flags().StringVar(&to, "to", "", "Range end (RFC3339)")
	c.Flags().StringVar(&technician, "technician", "", "Optional technician id filter")
	_ = c.MarkFlagRequired("tenant")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}

func moveCommand() *cobra.Command {
	var (
		apiURL          string
		tenantID        string
		appointmentID   string
		expectedVersion int64
		status          string
		position        int
	)

	c := &cobra.Command{
		Use:   "move",
		Short: "Move a card to a new status and/or position",
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := map[string]any{}
			if status != "" {
				changes["status"] = status
			}
			if cmd.Flags().Changed("position") {
				changes["position"] = position
			}
			if len(changes) == 0 {
				return fmt.Errorf("nothing to change; pass --status and/or --position")
			}

			payload, err := json.Marshal(map[string]any{
				"expected_version": expectedVersion,
				"changes":          changes,
			})
			if err != nil {
				return err
			}

			endpoint := fmt.Sprintf("%s/api/v1/appointments/%s/move", apiURL, appointmentID)
			body, err := doRequest(http.MethodPost, endpoint, tenantID, payload)
			if err != nil {
				return err
			}

			var updated struct {
				Status  string `json:"status"`
				Version int64  `json:"version"`
			}
			if err := json.Unmarshal(body, &updated); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			color.New(color.FgGreen).Printf("moved: status=%s version=%d\n", updated.Status, updated.Version)
			return nil
		},
	}

	c.Flags().StringVar(&apiURL, "api-url", "http://localhost:3000", "Board API base URL")
	c.Flags().StringVar(&tenantID, "tenant", "", "Tenant id (uuid)")
	c.Flags().StringVar(&appointmentID, "appointment", "", "Appointment id (uuid)")
	c.Flags().Int64Var(&expectedVersion, "expected-version", 0, "Version last observed for the appointment")
	c.Flags().StringVar(&status, "status", "", "Target status column")
	c.Flags().IntVar(&position, "position", 0, "Target position within the column")
	_ = c.MarkFlagRequired("tenant")
	_ = c.MarkFlagRequired("appointment")
	_ = c.MarkFlagRequired("expected-version")
	return c
}

func doRequest(method, endpoint, tenantID string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var p struct {
			Title          string   `json:"title"`
			Detail         string   `json:"detail"`
			ConflictingIDs []string `json:"conflicting_ids"`
		}
		if json.Unmarshal(body, &p) == nil && p.Title != "" {
			if len(p.ConflictingIDs) > 0 {
				return nil, fmt.Errorf("%s: %s (conflicts: %v)", p.Title, p.Detail, p.ConflictingIDs)
			}
			return nil, fmt.Errorf("%s: %s", p.Title, p.Detail)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return body, nil
}
