package model

import (
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

type UserID int64
type SessionID int64
type MessageID int64
type MemoryID int64
type PersonID int64
type ChapterID int64
type PromptRunID int64
type QuestionID int64

func (x UserID) String() string      { return strconv.FormatInt(int64(x), 10) }
func (x SessionID) String() string   { return strconv.FormatInt(int64(x), 10) }
func (x MessageID) String() string   { return strconv.FormatInt(int64(x), 10) }
func (x MemoryID) String() string    { return strconv.FormatInt(int64(x), 10) }
func (x PersonID) String() string    { return strconv.FormatInt(int64(x), 10) }
func (x ChapterID) String() string   { return strconv.FormatInt(int64(x), 10) }
func (x PromptRunID) String() string { return strconv.FormatInt(int64(x), 10) }
func (x QuestionID) String() string  { return strconv.FormatInt(int64(x), 10) }

// ParseID parses a positive decimal record ID given on the command line or in the state file.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid id", goerr.V("id", s))
	}
	if id <= 0 {
		return 0, goerr.New("id must be positive", goerr.V("id", s))
	}
	return id, nil
}
