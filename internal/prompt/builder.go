package prompt

import (
	"fmt"
	"strings"
	"time"
)

// TurnParams are the dynamic parameters interpolated into the per-turn
// instruction preamble.
type TurnParams struct {
	Today     time.Time
	Host      string
	SessionID string
	UploadDir string // absolute or static-root-relative path to the session's uploads
	StationID string // optional
}

// BuildInstructions renders the per-turn instruction preamble installed
// into the execution context before each chat turn.
func BuildInstructions(p TurnParams) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Today's date is %s.\n", p.Today.Format("2006-01-02"))
	fmt.Fprintf(&b, "The host is %s.\n", p.Host)
	fmt.Fprintf(&b, "The session_id is %s.\n", p.SessionID)
	fmt.Fprintf(&b, "The uploaded files are available in the %s folder. Use the file path to access the files when asked to analyze uploaded files.\n", p.UploadDir)

	if p.StationID != "" {
		fmt.Fprintf(&b, "The station_id is %s.\n", p.StationID)
	}

	return b.String()
}
