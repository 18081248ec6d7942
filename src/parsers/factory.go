package parsers

import (
	"fmt"

	"github.com/username/pitfolio/src/parsers/coinbase"
	"github.com/username/pitfolio/src/parsers/ibkr"
	"github.com/username/pitfolio/src/parsers/revolut"
	"github.com/username/pitfolio/src/parsers/schwab"
)

func GetParser(source string) (Parser, error) {
	switch source {
	case "schwab":
		return schwab.NewParser(), nil
	case "coinbase":
		return coinbase.NewParser(), nil
	case "ibkr":
		return ibkr.NewParser(), nil
	case "revolut":
		return revolut.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
