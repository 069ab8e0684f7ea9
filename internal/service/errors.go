package service

import "errors"

var (
	// ErrNoImage means the request carried no image.
	ErrNoImage = errors.New("no image provided")
	// ErrInvalidImage means the image field was not valid base64.
	ErrInvalidImage = errors.New("invalid base64 image")
	// ErrModelNotLoaded means no detector is available.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrStopped means the manager no longer accepts work.
	ErrStopped = errors.New("manager stopped")
)
