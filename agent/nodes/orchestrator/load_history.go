package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	statex "github.com/tanpawarit/vizta/agent/state"
)

// LoadHistory fills the recent conversation for the session. History is
// context only, so a failing store leaves it empty.
func LoadHistory(ctx context.Context, in *GraphState, store statex.Store, turns int) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if store == nil || in.Query.SessionID == "" {
		return in, nil
	}

	recent, err := store.Recent(ctx, in.Query.SessionID, turns)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("session_id", in.Query.SessionID).Msg("history unavailable")
		return in, nil
	}
	in.History = statex.FormatHistory(recent)
	return in, nil
}

// AppendHistory records the finished exchange. Canned phrase replies are
// not recorded. Failures are logged only.
func AppendHistory(ctx context.Context, in *GraphState, store statex.Store) {
	if in == nil || store == nil || in.Query.SessionID == "" || in.Response.Message == "" || Phrased(in) {
		return
	}
	if err := store.Append(ctx, in.Query.SessionID, statex.ExchangeTurns(in.Query, in.Response)...); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("session_id", in.Query.SessionID).Msg("history append failed")
	}
}
