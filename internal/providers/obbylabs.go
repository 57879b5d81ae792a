package providers

import "fmt"

// ObbyLabsFactory exposes the in-house model names. They are remaps onto
// Google upstream models with no fallback: an unregistered obbylabs name is
// an error, not a passthrough, because the public names are ours and nothing
// upstream would recognize them.
type ObbyLabsFactory struct {
	google *GoogleFactory
	models map[string]string
}

// NewObbyLabsFactory creates the obbylabs factory on top of an existing
// Google factory, sharing its credentials and HTTP client.
func NewObbyLabsFactory(google *GoogleFactory) *ObbyLabsFactory {
	return &ObbyLabsFactory{
		google: google,
		models: map[string]string{
			"agent-chat": "gemini-2.5-pro-preview-06-05",
			"fast-chat":  "gemini-2.5-flash",
		},
	}
}

func (f *ObbyLabsFactory) Name() string {
	return "obbylabs"
}

func (f *ObbyLabsFactory) CreateHandle(model string) (Handle, error) {
	upstream, ok := f.models[model]
	if !ok {
		return nil, fmt.Errorf("%w: obbylabs has no model %q", ErrUnsupportedModel, model)
	}

	// The google factory map is bypassed on purpose: upstream here is
	// already a concrete vendor model name.
	handle, err := f.google.createHandle(upstream, true)
	if err != nil {
		return nil, err
	}

	return &obbyLabsHandle{Handle: handle}, nil
}

// obbyLabsHandle reports obbylabs as its provider while delegating the
// upstream call to the wrapped google handle.
type obbyLabsHandle struct {
	Handle
}

func (h *obbyLabsHandle) Provider() string {
	return "obbylabs"
}
