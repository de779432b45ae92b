package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Poster is the posting engine entry point used by the CLI.
type Poster interface {
	Post(ctx context.Context, sourceType journals.SourceType, sourceID int64) (int64, error)
	Retract(ctx context.Context, sourceType journals.SourceType, sourceID int64) error
}

// Exit codes returned by PostCommand.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitNotPostable   = 10
	ExitMisconfigured = 20
)

// PostOptions defines the flags of the post command.
type PostOptions struct {
	SourceType string
	SourceID   int64
	Unpost     bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// PostResult is the JSON output of the post command.
type PostResult struct {
	SourceType     string `json:"source_type"`
	SourceID       int64  `json:"source_id"`
	JournalEntryID int64  `json:"journal_entry_id,omitempty"`
	Posted         bool   `json:"posted"`
	Removed        bool   `json:"removed,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// PostCLI posts or removes the journal entry of one source document.
type PostCLI struct {
	poster Poster
}

func NewPostCLI(poster Poster) *PostCLI {
	return &PostCLI{poster: poster}
}

// PostCommand runs the command and returns the process exit code.
func (c *PostCLI) PostCommand(ctx context.Context, opts PostOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	sourceType := journals.SourceType(strings.TrimSpace(opts.SourceType))
	if !sourceType.Valid() || sourceType == journals.SourceManual {
		_, _ = fmt.Fprintf(opts.Stderr, "post: unsupported -type %q\n", opts.SourceType)
		return ExitFailure
	}
	if opts.SourceID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "post: -id is required and must be positive")
		return ExitFailure
	}

	result := PostResult{SourceType: string(sourceType), SourceID: opts.SourceID}
	code := ExitOK
	if opts.Unpost {
		err := c.poster.Retract(ctx, sourceType, opts.SourceID)
		switch {
		case errors.Is(err, shared.ErrRetractRefused):
			_, _ = fmt.Fprintf(opts.Stderr, "post: %v\n", err)
			return ExitNotPostable
		case err != nil:
			_, _ = fmt.Fprintf(opts.Stderr, "post: %v\n", err)
			return ExitFailure
		}
		result.Removed = true
	} else {
		entryID, err := c.poster.Post(ctx, sourceType, opts.SourceID)
		switch {
		case errors.Is(err, shared.ErrNothingToPost):
			result.Reason = err.Error()
		case errors.Is(err, shared.ErrAccountNotConfigured):
			_, _ = fmt.Fprintf(opts.Stderr, "post: chart of accounts incomplete: %v\n", err)
			return ExitMisconfigured
		case errors.Is(err, shared.ErrSourceNotPostable):
			result.Reason = err.Error()
			code = ExitNotPostable
		case err != nil:
			_, _ = fmt.Fprintf(opts.Stderr, "post: %v\n", err)
			return ExitFailure
		default:
			result.JournalEntryID = entryID
			result.Posted = true
		}
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "post: encode json: %v\n", err)
			return ExitFailure
		}
		return code
	}
	renderPostHuman(opts.Stdout, result)
	return code
}

func renderPostHuman(w io.Writer, r PostResult) {
	switch {
	case r.Removed:
		_, _ = fmt.Fprintf(w, "%s %d: journal entry removed\n", r.SourceType, r.SourceID)
	case r.Posted:
		_, _ = fmt.Fprintf(w, "%s %d: posted as journal entry %d\n", r.SourceType, r.SourceID, r.JournalEntryID)
	default:
		_, _ = fmt.Fprintf(w, "%s %d: not posted (%s)\n", r.SourceType, r.SourceID, r.Reason)
	}
}
