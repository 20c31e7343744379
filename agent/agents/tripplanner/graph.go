package tripplanner

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/databricks-agent-toolkit/agent/contract"
)

// tripState flows through the graph. Domain failures are carried in err so
// later nodes pass through untouched and the caller sees the original error.
type tripState struct {
	req        tripRequest
	assessment Assessment
	err        error
}

func compileTripGraph(
	ctx context.Context,
	settings Settings,
	narrator Narrator,
	now func() time.Time,
) (compose.Runnable[contractx.AgentInput, *tripState], error) {
	graph := compose.NewGraph[contractx.AgentInput, *tripState]()

	if err := graph.AddLambdaNode("decode",
		compose.InvokableLambda(func(ctx context.Context, in contractx.AgentInput) (*tripState, error) {
			req, err := decodeRequest(in.Data)
			return &tripState{req: req, err: err}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add trip decode node: %w", err)
	}

	if err := graph.AddLambdaNode("score",
		compose.InvokableLambda(func(ctx context.Context, st *tripState) (*tripState, error) {
			if st.err != nil {
				return st, nil
			}
			st.assessment, st.err = assess(st.req, settings, now())
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add trip score node: %w", err)
	}

	if err := graph.AddLambdaNode("narrate",
		compose.InvokableLambda(func(ctx context.Context, st *tripState) (*tripState, error) {
			if st.err != nil {
				return st, nil
			}
			st.assessment.Narrative, st.err = narrator.Narrate(ctx, st.assessment)
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add trip narrate node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "decode"); err != nil {
		return nil, fmt.Errorf("add trip edge start->decode: %w", err)
	}
	if err := graph.AddEdge("decode", "score"); err != nil {
		return nil, fmt.Errorf("add trip edge decode->score: %w", err)
	}
	if err := graph.AddEdge("score", "narrate"); err != nil {
		return nil, fmt.Errorf("add trip edge score->narrate: %w", err)
	}
	if err := graph.AddEdge("narrate", compose.END); err != nil {
		return nil, fmt.Errorf("add trip edge narrate->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("tripplanner.process_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile trip planner graph: %w", err)
	}
	return runner, nil
}
