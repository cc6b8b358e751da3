package model

import "github.com/Laisky/errors/v2"

// ErrPostNotFound indicates the post or its requested language variant does not exist.
var ErrPostNotFound = errors.New("post not found")
