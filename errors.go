package edabot

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or configuration failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNoAttachment indicates no conversation turn carries an attachment.
	ErrNoAttachment = errors.New("no attachment")

	// ErrNoDataset indicates the attachment could not be fetched or parsed.
	ErrNoDataset = errors.New("no dataset")

	// ErrEmptyCompletion indicates the model stream finished without text.
	ErrEmptyCompletion = errors.New("completion contained no text")

	// ErrNoCode indicates the completion contained no fenced code section.
	ErrNoCode = errors.New("no code produced")

	// ErrExport indicates a chart could not be handed to the image host.
	ErrExport = errors.New("chart export failed")

	// ErrStreamNotReady indicates Completion() was called before Next().
	ErrStreamNotReady = errors.New("stream not ready: call Next() first")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
