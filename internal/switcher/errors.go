package switcher

import "fmt"

// SwitchError aborts a pass. Unit is the project being edited and Reference
// the reference being processed, when known.
type SwitchError struct {
	Unit      string
	Reference string
	Err       error
}

func (e *SwitchError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("project %s: %v", e.Unit, e.Err)
	}
	return fmt.Sprintf("project %s reference %s: %v", e.Unit, e.Reference, e.Err)
}

func (e *SwitchError) Unwrap() error {
	return e.Err
}
