package commands

import (
	"fmt"
	"strings"

	"github.com/teranos/hmis/am"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
	"github.com/teranos/hmis/store"
)

// openStore loads the configuration and opens the store it names, creating
// the schema if needed.
func openStore() (*store.Store, *am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}

	conn, err := cfg.ConnectionConfig()
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(conn, logger.ComponentLogger("store"))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %s", conn.Redacted())
	}
	return s, cfg, nil
}

// FormatError renders err with any hints attached along the chain.
func FormatError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %v", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(&b, "\nHint: %s", hint)
	}
	return b.String()
}
