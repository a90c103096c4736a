package entity

import "errors"

var (
	ErrEmptyContent      = errors.New("message content is required")
	ErrContentTooLong    = errors.New("message content exceeds 500 characters")
	ErrSenderNameTooLong = errors.New("sender name exceeds 50 characters")
	ErrEmptyAttachment   = errors.New("attachment reference is required")
)
