package reconcile

import (
	"context"
	"testing"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/metrics"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/remote"
	"github.com/evanofslack/adsmutate/internal/remote/remotetest"
	"github.com/evanofslack/adsmutate/internal/submit"
)

func buildChain(t *testing.T) *mutate.Batch {
	t.Helper()
	p := mutate.NewPlan("123")
	if _, err := p.CreateBudget("budget", mutate.BudgetSpec{Name: "Budget", AmountMicros: 10_000_000}); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := p.CreateCampaign("campaign", mutate.CampaignSpec{Name: "PMax", Budget: mutate.Role("budget"), ChannelType: "PERFORMANCE_MAX"}); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if _, err := p.CreateAssetGroup("assetGroup", mutate.AssetGroupSpec{Name: "AG", Campaign: mutate.Role("campaign"), FinalURLs: []string{"https://example.com"}}); err != nil {
		t.Fatalf("create asset group: %v", err)
	}
	b, err := p.Batch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	return b
}

func TestReconcileThreeOperationChain(t *testing.T) {
	fake := &remotetest.Client{}
	s := submit.New(fake.Connector(), metrics.New(false))
	b := buildChain(t)

	res, err := s.Submit(context.Background(), b, submit.Options{Limit: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	out := Reconcile(b, res, map[string]string{
		"campaign":   "new_campaign_id",
		"assetGroup": "new_asset_group_id",
		"budget":     "new_budget_id",
	})

	if got, want := out.ID("new_campaign_id"), mutate.ResourceID(res.Entries[1].ResourceName); got != want {
		t.Errorf("new_campaign_id = %q, want %q", got, want)
	}
	if out.Names["campaign"] != res.Entries[1].ResourceName {
		t.Errorf("campaign name = %q, want %q", out.Names["campaign"], res.Entries[1].ResourceName)
	}
	if out.Succeeded != 3 || out.Failed != 0 {
		t.Errorf("succeeded=%d failed=%d, want 3 and 0", out.Succeeded, out.Failed)
	}

	// the reference table now resolves roles to real names
	name, ok := b.Refs.Resolve("assetGroup")
	if !ok || name != res.Entries[2].ResourceName {
		t.Errorf("assetGroup resolves to %q, want %q", name, res.Entries[2].ResourceName)
	}
	binding, _ := b.Refs.Binding("assetGroup")
	if !binding.Bound() {
		t.Error("assetGroup binding should be bound after reconcile")
	}
}

func TestReconcilePartial(t *testing.T) {
	b := buildChain(t)
	res := submit.Result{
		Entries: []submit.Entry{
			{Index: 0, Type: mutate.ResourceBudget, ResourceName: "customers/123/campaignBudgets/9"},
			{Index: 1, Type: mutate.ResourceCampaign, Err: &apierr.OperationFailure{Index: 1, Code: "CAMPAIGN_ERROR.DUPLICATE_CAMPAIGN_NAME", Message: "duplicate"}},
			{Index: 2, Type: mutate.ResourceAssetGroup, Err: &apierr.OperationFailure{Index: 2, Code: "UNKNOWN", Message: "dependent failed"}},
		},
		PartialFailure: true,
		Failures: []apierr.OperationFailure{
			{Index: 1, Code: "CAMPAIGN_ERROR.DUPLICATE_CAMPAIGN_NAME", Message: "duplicate"},
			{Index: 2, Code: "UNKNOWN", Message: "dependent failed"},
		},
	}

	out := Reconcile(b, res, map[string]string{"campaign": "new_campaign_id", "budget": "new_budget_id"})
	if out.ID("new_budget_id") != "9" {
		t.Errorf("new_budget_id = %q, want 9", out.ID("new_budget_id"))
	}
	if _, ok := out.Values["new_campaign_id"]; ok {
		t.Error("failed campaign must not produce an id")
	}
	if len(out.Missing) != 2 || out.Missing[0] != "assetGroup" || out.Missing[1] != "campaign" {
		t.Errorf("missing = %v, want [assetGroup campaign]", out.Missing)
	}

	causes := Causes(res)
	if len(causes) != 2 || causes[0].Category != apierr.CategoryDuplicate {
		t.Errorf("causes = %+v", causes)
	}
}

func TestCountSucceeded(t *testing.T) {
	fake := &remotetest.Client{
		MutateFunc: func(_ context.Context, cid string, ops []mutate.Operation, _ remote.MutateOptions) (remote.MutateResponse, error) {
			resp := remotetest.Echo(cid, ops)
			resp.Results[1].ResourceName = ""
			resp.PartialFailure = []apierr.OperationFailure{{Index: 1, Code: "POLICY_FINDING_ERROR.POLICY_FINDING", Message: "trademark"}}
			return resp, nil
		},
	}
	s := submit.New(fake.Connector(), metrics.New(false))

	p := mutate.NewPlan("1")
	for _, kw := range []string{"shoes", "brandname shoes", "running shoes"} {
		if _, err := p.CreateKeyword("", mutate.KeywordSpec{AdGroup: mutate.Name("customers/1/adGroups/2"), Text: kw}); err != nil {
			t.Fatal(err)
		}
	}
	b, err := p.Batch()
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Submit(context.Background(), b, submit.Options{Limit: 5000, PartialFailure: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := CountSucceeded(res, mutate.ResourceCriterion); got != 2 {
		t.Errorf("CountSucceeded = %d, want 2", got)
	}
	if got := CountSucceeded(res, mutate.ResourceAdGroup); got != 0 {
		t.Errorf("CountSucceeded(ad group) = %d, want 0", got)
	}
}
