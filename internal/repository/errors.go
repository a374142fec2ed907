package repository

import "errors"

var ErrConversationClosed = errors.New("conversation is closed")
