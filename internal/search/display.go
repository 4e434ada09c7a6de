package search

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Display prints search progress as "event key=value ..." lines. A zero
// Display is silent.
type Display struct {
	w io.Writer
}

func NewDisplay(w io.Writer, enabled bool) Display {
	if !enabled {
		return Display{}
	}
	return Display{w: w}
}

func (d Display) Enabled() bool {
	return d.w != nil
}

func (d Display) Event(name string, kv ...any) {
	if d.w == nil {
		return
	}
	var b strings.Builder
	b.WriteString(name)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%s", kv[i], formatValue(kv[i+1]))
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(d.w, b.String())
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.6f", x)
	case time.Duration:
		return x.Round(time.Millisecond).String()
	case []bool:
		var b strings.Builder
		for _, selected := range x {
			if selected {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		return b.String()
	case []string:
		return strings.Join(x, ",")
	default:
		return fmt.Sprint(x)
	}
}
