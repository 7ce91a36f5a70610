package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// PostProcess runs the post-processors on a successful response. Their
// failures never change the response.
func PostProcess(ctx context.Context, in *GraphState, processors []contractx.PostProcessor) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if !in.Response.Success {
		return in, nil
	}
	for _, p := range processors {
		if p == nil {
			continue
		}
		if err := p.AfterSuccess(ctx, in.Query, in.Response); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("processor", fmt.Sprintf("%T", p)).Msg("post-processing failed")
		}
	}
	return in, nil
}
