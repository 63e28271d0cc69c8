package llm

import (
	"context"

	"github.com/jonathan/resume-studio/internal/jsonfix"
	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/schemas"
)

// CallJSON makes one call and decodes its content into v, repairing truncated
// JSON and validating it against the named output schema when one is given.
// The response is returned even when decoding fails so its usage is kept.
// Errors are *ProviderError, *jsonfix.DecodeError or *schemas.ValidationError.
func CallJSON(ctx context.Context, caller Caller, req Request, opts CallOptions, schema string, v any) (*Response, error) {
	resp, err := caller.Call(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	res, err := jsonfix.DecodeWithResult(resp.Content, v)
	if err != nil {
		return resp, err
	}
	if res.Repaired {
		logx.Info().
			Str("scenario", string(opts.Scenario)).
			Bool("provider_truncated", resp.Truncated).
			Msg("repaired truncated JSON output")
	}

	if schema != "" {
		if err := schemas.ValidateOutput(schema, res.JSON); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
