// Package prompt fills compiled forms interactively in a terminal. A Driver
// asks the individual questions; Filler walks the field tree, picks the
// question kind from the matched component and checks every answer against
// the field's validation rule before accepting it.
package prompt
