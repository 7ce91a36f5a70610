package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	nodex "github.com/tanpawarit/vizta/agent/nodes/orchestrator"
)

const (
	nodeValidate     = "validate_request"
	nodePhrase       = "match_phrase"
	nodeHistory      = "load_history"
	nodeClassify     = "classify"
	nodeConversation = "conversational_reply"
	nodeRoute        = "route_agents"
	nodeDispatch     = "dispatch_agents"
	nodeMerge        = "merge_results"
	nodePostProcess  = "post_process"
	nodeFinalize     = "finalize"
)

func (o *Orchestrator) compileHandleQueryGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, contractx.Response], error) {
	graph := compose.NewGraph[nodex.GraphInput, contractx.Response]()

	if err := graph.AddLambdaNode(nodeValidate,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	if err := graph.AddLambdaNode(nodePhrase,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.MatchPhrase(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodePhrase, err)
	}

	if err := graph.AddLambdaNode(nodeHistory,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadHistory(ctx, in, o.deps.History, o.cfg.HistoryTurns)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeHistory, err)
	}

	if err := graph.AddLambdaNode(nodeClassify,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Classify(ctx, in, o.deps.Classifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClassify, err)
	}

	if err := graph.AddLambdaNode(nodeConversation,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ConversationalReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeConversation, err)
	}

	if err := graph.AddLambdaNode(nodeRoute,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteAgents(in, o.available)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRoute, err)
	}

	if err := graph.AddLambdaNode(nodeDispatch,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchAgents(ctx, in, o.deps.Specialists, o.cfg.AgentTimeout)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDispatch, err)
	}

	if err := graph.AddLambdaNode(nodeMerge,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.MergeResults(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeMerge, err)
	}

	if err := graph.AddLambdaNode(nodePostProcess,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PostProcess(ctx, in, o.deps.PostProcessors)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodePostProcess, err)
	}

	if err := graph.AddLambdaNode(nodeFinalize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (contractx.Response, error) {
			resp, err := nodex.Finalize(in, o.now())
			if err != nil {
				return contractx.Response{}, err
			}
			nodex.AppendHistory(ctx, in, o.deps.History)
			nodex.EmitTelemetry(ctx, o.deps.Telemetry, in.Query, resp)
			return resp, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalize, err)
	}

	phraseBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if nodex.Phrased(in) {
				return nodeConversation, nil
			}
			return nodeHistory, nil
		},
		map[string]bool{nodeConversation: true, nodeHistory: true},
	)
	if err := graph.AddBranch(nodePhrase, phraseBranch); err != nil {
		return nil, fmt.Errorf("add phrase branch: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in.Classification.Intent == contractx.IntentConversational {
				return nodeConversation, nil
			}
			return nodeRoute, nil
		},
		map[string]bool{nodeConversation: true, nodeRoute: true},
	)
	if err := graph.AddBranch(nodeClassify, branch); err != nil {
		return nil, fmt.Errorf("add classify branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeValidate},
		{nodeValidate, nodePhrase},
		{nodeHistory, nodeClassify},
		{nodeConversation, nodeFinalize},
		{nodeRoute, nodeDispatch},
		{nodeDispatch, nodeMerge},
		{nodeMerge, nodePostProcess},
		{nodePostProcess, nodeFinalize},
		{nodeFinalize, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_query"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
