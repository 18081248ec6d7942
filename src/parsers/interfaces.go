package parsers

import (
	"io"

	"github.com/username/pitfolio/src/models"
)

// Parser turns one broker export file into normalized raw actions, oldest
// first. Each broker format gets its own implementation under this package.
type Parser interface {
	Parse(file io.Reader) ([]models.RawAction, error)
}
