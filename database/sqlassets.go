package sqlassets

import _ "embed"

//go:embed schema/appointments.sql
var AppointmentsSQL string
