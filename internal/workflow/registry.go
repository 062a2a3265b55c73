package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/evanofslack/adsmutate/internal/apierr"
)

const (
	WorkflowPerformanceMax      = "create_performance_max"
	WorkflowAssetGroup          = "create_asset_group"
	WorkflowSearchCampaign      = "create_search_campaign"
	WorkflowBatchSetStatus      = "batch_set_status"
	WorkflowAddKeywords         = "add_keywords"
	WorkflowLabel               = "create_label"
	WorkflowNegativeKeywordList = "create_negative_keyword_list"
	WorkflowCloneCampaign       = "clone_campaign"
)

var ErrUnknownWorkflow = errors.New("unknown workflow")

// Summarizer is implemented by every workflow result.
type Summarizer interface {
	Summary() string
}

type handler func(ctx context.Context, s *Service, payload []byte) (Summarizer, error)

func handle[In any, Out Summarizer](fn func(*Service, context.Context, In) (Out, error)) handler {
	return func(ctx context.Context, s *Service, payload []byte) (Summarizer, error) {
		var in In
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return nil, apierr.Validationf("decode input", "%v", err)
		}
		out, err := fn(s, ctx, in)
		return out, err
	}
}

var handlers = map[string]handler{
	WorkflowPerformanceMax:      handle((*Service).CreatePerformanceMax),
	WorkflowAssetGroup:          handle((*Service).CreateAssetGroup),
	WorkflowSearchCampaign:      handle((*Service).CreateSearchCampaign),
	WorkflowBatchSetStatus:      handle((*Service).BatchSetStatus),
	WorkflowAddKeywords:         handle((*Service).AddKeywords),
	WorkflowLabel:               handle((*Service).CreateLabel),
	WorkflowNegativeKeywordList: handle((*Service).CreateNegativeKeywordList),
	WorkflowCloneCampaign:       handle((*Service).CloneCampaign),
}

// Names lists the registered workflows.
func Names() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch decodes payload as the input of the named workflow and runs it.
// The result is returned alongside any error, since a workflow that stops
// part way still reports what it committed.
func (s *Service) Dispatch(ctx context.Context, name string, payload []byte) (Summarizer, error) {
	h, ok := handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorkflow, name)
	}
	return h(ctx, s, payload)
}
