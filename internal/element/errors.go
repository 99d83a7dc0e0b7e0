package element

import "errors"

// ErrMalformedSign is returned when a perceptual sign's wire form does not
// match %{<norm>}<id>(<signifier>).
var ErrMalformedSign = errors.New("malformed perceptual sign")
