package mutate

import (
	"github.com/evanofslack/adsmutate/internal/apierr"
)

const opBuild = "build operation"

// Ref points a builder at another resource, either by the role it was
// registered under earlier in the same plan or by a persisted resource name.
type Ref struct {
	role string
	name string
}

// Role refers to a resource registered in the plan's ReferenceTable.
func Role(role string) Ref { return Ref{role: role} }

// Name refers to a persisted resource.
func Name(name string) Ref { return Ref{name: name} }

func (r Ref) IsZero() bool { return r.role == "" && r.name == "" }

func (r Ref) String() string {
	if r.role != "" {
		return "role:" + r.role
	}
	return r.name
}

// Plan accumulates operations in intent order. Builders never touch the
// network; each one validates its own inputs, resolves references through
// the ReferenceTable and, for role-carrying creates, registers a new
// placeholder under that role.
type Plan struct {
	customerID string
	alloc      *Allocator
	refs       *ReferenceTable
	ops        []Operation
}

func NewPlan(customerID string) *Plan {
	return &Plan{
		customerID: customerID,
		alloc:      NewAllocator(customerID),
		refs:       NewReferenceTable(),
	}
}

func (p *Plan) CustomerID() string      { return p.customerID }
func (p *Plan) Refs() *ReferenceTable   { return p.refs }
func (p *Plan) Len() int                { return len(p.ops) }
func (p *Plan) Operations() []Operation { return append([]Operation(nil), p.ops...) }

// Batch verifies the accumulated operations and returns them as one batch.
func (p *Plan) Batch() (*Batch, error) {
	return NewBatch(p.customerID, p.Operations(), p.refs)
}

func (p *Plan) resolve(field string, r Ref) (string, error) {
	if r.IsZero() {
		return "", apierr.Validationf(opBuild, "%s reference is required", field)
	}
	if r.name != "" {
		return r.name, nil
	}
	name, ok := p.refs.Resolve(r.role)
	if !ok {
		return "", apierr.Validationf(opBuild, "%s refers to unregistered role %q", field, r.role)
	}
	return name, nil
}

// placeholder allocates and registers a placeholder for role. An empty role
// yields an empty name and registers nothing.
func (p *Plan) placeholder(role string, rt ResourceType) (string, error) {
	if role == "" {
		return "", nil
	}
	if _, ok := p.refs.Resolve(role); ok {
		return "", apierr.Validationf(opBuild, "role %q is already registered", role)
	}
	name := p.alloc.Allocate(rt.Collection())
	if err := p.refs.define(role, rt, name, len(p.ops)); err != nil {
		return "", apierr.Validationf(opBuild, "%v", err)
	}
	return name, nil
}

func (p *Plan) create(role string, res Resource, set func(name string) Resource, refs ...string) (string, error) {
	name, err := p.placeholder(role, res.ResourceType())
	if err != nil {
		return "", err
	}
	if name != "" {
		res = set(name)
	}
	p.ops = append(p.ops, Operation{
		Kind:       KindCreate,
		Type:       res.ResourceType(),
		Resource:   res,
		Defines:    name,
		References: refs,
	})
	return name, nil
}

func (p *Plan) link(res Resource, refs ...string) {
	p.ops = append(p.ops, Operation{Kind: KindCreate, Type: res.ResourceType(), Resource: res, References: refs})
}

type BudgetSpec struct {
	Name           string
	AmountMicros   int64
	DeliveryMethod string
	Shared         bool
}

func (p *Plan) CreateBudget(role string, s BudgetSpec) (string, error) {
	if err := ValidateText("budget name", s.Name, MaxResourceName); err != nil {
		return "", err
	}
	if s.AmountMicros <= 0 {
		return "", apierr.Validationf(opBuild, "budget amount must be positive, got %d micros", s.AmountMicros)
	}
	delivery := s.DeliveryMethod
	if delivery == "" {
		delivery = "STANDARD"
	}
	if err := ValidateEnum("delivery_method", delivery, "STANDARD", "ACCELERATED"); err != nil {
		return "", err
	}
	shared := s.Shared
	b := Budget{Name: s.Name, AmountMicros: s.AmountMicros, DeliveryMethod: delivery, ExplicitlyShared: &shared}
	return p.create(role, b, func(n string) Resource { b.ResourceName = n; return b })
}

var (
	channelTypes      = []string{"SEARCH", "DISPLAY", "SHOPPING", "PERFORMANCE_MAX", "VIDEO", "DEMAND_GEN"}
	biddingStrategies = []string{"MANUAL_CPC", "MAXIMIZE_CONVERSIONS", "MAXIMIZE_CONVERSION_VALUE", "TARGET_SPEND", "TARGET_CPA", "TARGET_ROAS"}
)

type CampaignSpec struct {
	Name        string
	Budget      Ref
	ChannelType string
	// Status defaults to PAUSED.
	Status          string
	BiddingStrategy string
	TargetCpaMicros int64
	TargetRoas      float64
	CpcCeilMicros   int64
	StartDate       string
	EndDate         string
	Network         *NetworkSettings
}

func (p *Plan) CreateCampaign(role string, s CampaignSpec) (string, error) {
	if err := ValidateText("campaign name", s.Name, MaxResourceName); err != nil {
		return "", err
	}
	if err := ValidateEnum("advertising_channel_type", s.ChannelType, channelTypes...); err != nil {
		return "", err
	}
	status := s.Status
	if status == "" {
		status = "PAUSED"
	}
	if err := ValidateEnum("status", status, "ENABLED", "PAUSED"); err != nil {
		return "", err
	}
	budget, err := p.resolve("campaign budget", s.Budget)
	if err != nil {
		return "", err
	}

	c := Campaign{
		Name:                   s.Name,
		Status:                 status,
		AdvertisingChannelType: s.ChannelType,
		CampaignBudget:         budget,
		StartDate:              s.StartDate,
		EndDate:                s.EndDate,
		NetworkSettings:        s.Network,
	}
	strategy := s.BiddingStrategy
	if strategy == "" {
		strategy = "MANUAL_CPC"
		if s.ChannelType == "PERFORMANCE_MAX" {
			strategy = "MAXIMIZE_CONVERSION_VALUE"
		}
	}
	if err := ValidateEnum("bidding_strategy", strategy, biddingStrategies...); err != nil {
		return "", err
	}
	switch strategy {
	case "MANUAL_CPC":
		c.ManualCpc = &ManualCpc{}
	case "MAXIMIZE_CONVERSIONS":
		c.MaximizeConversions = &MaximizeConversions{TargetCpaMicros: s.TargetCpaMicros}
	case "MAXIMIZE_CONVERSION_VALUE":
		c.MaximizeConversionValue = &MaximizeConversionValue{TargetRoas: s.TargetRoas}
	case "TARGET_SPEND":
		c.TargetSpend = &TargetSpend{CpcBidCeilingMicros: s.CpcCeilMicros}
	case "TARGET_CPA":
		c.TargetCpa = &TargetCpa{TargetCpaMicros: s.TargetCpaMicros}
	case "TARGET_ROAS":
		c.TargetRoas = &TargetRoas{TargetRoas: s.TargetRoas}
	}
	if c.NetworkSettings == nil && s.ChannelType == "SEARCH" {
		on, off := true, false
		c.NetworkSettings = &NetworkSettings{TargetGoogleSearch: &on, TargetSearchNetwork: &on, TargetContentNetwork: &off}
	}
	return p.create(role, c, func(n string) Resource { c.ResourceName = n; return c }, budget)
}

type AssetGroupSpec struct {
	Name      string
	Campaign  Ref
	FinalURLs []string
	Path1     string
	Path2     string
	Status    string
}

func (p *Plan) CreateAssetGroup(role string, s AssetGroupSpec) (string, error) {
	if err := ValidateText("asset group name", s.Name, MaxResourceName); err != nil {
		return "", err
	}
	if len(s.FinalURLs) == 0 {
		return "", apierr.Validationf(opBuild, "asset group needs at least one final url")
	}
	for _, u := range s.FinalURLs {
		if err := ValidateURL("final_url", u); err != nil {
			return "", err
		}
	}
	if err := validatePaths(s.Path1, s.Path2); err != nil {
		return "", err
	}
	status := s.Status
	if status == "" {
		status = "PAUSED"
	}
	campaign, err := p.resolve("asset group campaign", s.Campaign)
	if err != nil {
		return "", err
	}
	ag := AssetGroup{Name: s.Name, Campaign: campaign, Status: status, FinalUrls: s.FinalURLs, Path1: s.Path1, Path2: s.Path2}
	return p.create(role, ag, func(n string) Resource { ag.ResourceName = n; return ag }, campaign)
}

func (p *Plan) CreateTextAsset(role, text string) (string, error) {
	if err := ValidateText("text asset", text, MaxLongHeadline); err != nil {
		return "", err
	}
	a := Asset{TextAsset: &TextAsset{Text: text}}
	return p.create(role, a, func(n string) Resource { a.ResourceName = n; return a })
}

var assetFieldTypes = []string{
	"HEADLINE", "DESCRIPTION", "LONG_HEADLINE", "BUSINESS_NAME",
	"MARKETING_IMAGE", "SQUARE_MARKETING_IMAGE", "LOGO", "SITELINK", "CALLOUT",
}

// LinkAssetToAssetGroup attaches an asset to an asset group under fieldType.
func (p *Plan) LinkAssetToAssetGroup(assetGroup, asset Ref, fieldType string) error {
	if err := ValidateEnum("field_type", fieldType, assetFieldTypes...); err != nil {
		return err
	}
	ag, err := p.resolve("asset group", assetGroup)
	if err != nil {
		return err
	}
	a, err := p.resolve("asset", asset)
	if err != nil {
		return err
	}
	p.link(AssetGroupAsset{AssetGroup: ag, Asset: a, FieldType: fieldType}, ag, a)
	return nil
}

func (p *Plan) LinkAssetToCampaign(campaign, asset Ref, fieldType string) error {
	if err := ValidateEnum("field_type", fieldType, assetFieldTypes...); err != nil {
		return err
	}
	c, err := p.resolve("campaign", campaign)
	if err != nil {
		return err
	}
	a, err := p.resolve("asset", asset)
	if err != nil {
		return err
	}
	p.link(CampaignAsset{Campaign: c, Asset: a, FieldType: fieldType}, c, a)
	return nil
}

// ListingGroupSpec describes one node of an asset group's product tree.
// A zero Parent makes the node the root. Child nodes carry a Brand; an
// empty brand is the "everything else" case.
type ListingGroupSpec struct {
	AssetGroup Ref
	Parent     Ref
	Type       string
	Brand      *string
}

func (p *Plan) CreateListingGroupFilter(role string, s ListingGroupSpec) (string, error) {
	if err := ValidateEnum("listing group type", s.Type, "UNIT_INCLUDED", "UNIT_EXCLUDED", "SUBDIVISION"); err != nil {
		return "", err
	}
	ag, err := p.resolve("listing group asset group", s.AssetGroup)
	if err != nil {
		return "", err
	}

	f := ListingGroupFilter{AssetGroup: ag, Type: s.Type}
	refs := []string{ag}
	if s.Parent.IsZero() {
		if s.Brand != nil {
			return "", apierr.Validationf(opBuild, "root listing group cannot carry a dimension")
		}
		if s.Type == "UNIT_EXCLUDED" {
			return "", apierr.Validationf(opBuild, "root listing group cannot exclude every product")
		}
	} else {
		if s.Parent.role != "" {
			b, ok := p.refs.Binding(s.Parent.role)
			if !ok {
				return "", apierr.Validationf(opBuild, "listing group parent role %q is not registered", s.Parent.role)
			}
			if b.Type != ResourceListingGroupFilter {
				return "", apierr.Validationf(opBuild, "listing group parent %q is a %s", s.Parent.role, b.Type)
			}
		}
		parent, err := p.resolve("listing group parent", s.Parent)
		if err != nil {
			return "", err
		}
		if s.Brand == nil {
			return "", apierr.Validationf(opBuild, "child listing group needs a dimension")
		}
		f.ParentListingGroupFilter = parent
		f.CaseValue = &ListingDimension{ProductBrand: &ProductBrand{Value: *s.Brand}}
		refs = append(refs, parent)
	}
	return p.create(role, f, func(n string) Resource { f.ResourceName = n; return f }, refs...)
}

type AdGroupSpec struct {
	Name         string
	Campaign     Ref
	Type         string
	CpcBidMicros int64
	Status       string
}

func (p *Plan) CreateAdGroup(role string, s AdGroupSpec) (string, error) {
	if err := ValidateText("ad group name", s.Name, MaxResourceName); err != nil {
		return "", err
	}
	if s.CpcBidMicros < 0 {
		return "", apierr.Validationf(opBuild, "cpc bid cannot be negative")
	}
	typ := s.Type
	if typ == "" {
		typ = "SEARCH_STANDARD"
	}
	if err := ValidateEnum("ad group type", typ); err != nil {
		return "", err
	}
	status := s.Status
	if status == "" {
		status = "PAUSED"
	}
	if err := ValidateEnum("status", status, "ENABLED", "PAUSED"); err != nil {
		return "", err
	}
	campaign, err := p.resolve("ad group campaign", s.Campaign)
	if err != nil {
		return "", err
	}
	g := AdGroup{Name: s.Name, Campaign: campaign, Status: status, Type: typ, CpcBidMicros: s.CpcBidMicros}
	return p.create(role, g, func(n string) Resource { g.ResourceName = n; return g }, campaign)
}

type KeywordSpec struct {
	AdGroup      Ref
	Text         string
	MatchType    string
	CpcBidMicros int64
	Status       string
	FinalURLs    []string
}

func (p *Plan) CreateKeyword(role string, s KeywordSpec) (string, error) {
	if err := ValidateText("keyword", s.Text, MaxKeyword); err != nil {
		return "", err
	}
	match := s.MatchType
	if match == "" {
		match = "BROAD"
	}
	if err := ValidateMatchType(match); err != nil {
		return "", err
	}
	status := s.Status
	if status == "" {
		status = "ENABLED"
	}
	if err := ValidateEnum("status", status, "ENABLED", "PAUSED"); err != nil {
		return "", err
	}
	adGroup, err := p.resolve("keyword ad group", s.AdGroup)
	if err != nil {
		return "", err
	}
	c := AdGroupCriterion{
		AdGroup:      adGroup,
		Status:       status,
		Keyword:      &KeywordInfo{Text: s.Text, MatchType: match},
		CpcBidMicros: s.CpcBidMicros,
		FinalUrls:    s.FinalURLs,
	}
	return p.create(role, c, func(n string) Resource { c.ResourceName = n; return c }, adGroup)
}

type ResponsiveSearchAdSpec struct {
	AdGroup      Ref
	Headlines    []string
	Descriptions []string
	FinalURLs    []string
	Path1        string
	Path2        string
	Status       string
}

func (p *Plan) CreateResponsiveSearchAd(role string, s ResponsiveSearchAdSpec) (string, error) {
	if err := ValidateTexts("headlines", s.Headlines, 3, 15, MaxHeadline); err != nil {
		return "", err
	}
	if err := ValidateTexts("descriptions", s.Descriptions, 2, 4, MaxDescription); err != nil {
		return "", err
	}
	if len(s.FinalURLs) == 0 {
		return "", apierr.Validationf(opBuild, "responsive search ad needs a final url")
	}
	for _, u := range s.FinalURLs {
		if err := ValidateURL("final_url", u); err != nil {
			return "", err
		}
	}
	if err := validatePaths(s.Path1, s.Path2); err != nil {
		return "", err
	}
	status := s.Status
	if status == "" {
		status = "PAUSED"
	}
	adGroup, err := p.resolve("ad group", s.AdGroup)
	if err != nil {
		return "", err
	}
	ad := AdGroupAd{
		AdGroup: adGroup,
		Status:  status,
		Ad: &Ad{
			FinalUrls: s.FinalURLs,
			ResponsiveSearchAd: &ResponsiveSearchAdInfo{
				Headlines:    textAssets(s.Headlines),
				Descriptions: textAssets(s.Descriptions),
				Path1:        s.Path1,
				Path2:        s.Path2,
			},
		},
	}
	return p.create(role, ad, func(n string) Resource { ad.ResourceName = n; return ad }, adGroup)
}

type LabelSpec struct {
	Name        string
	Description string
	Color       string
}

func (p *Plan) CreateLabel(role string, s LabelSpec) (string, error) {
	if err := ValidateText("label name", s.Name, MaxLabelName); err != nil {
		return "", err
	}
	l := Label{Name: s.Name}
	if s.Description != "" || s.Color != "" {
		l.TextLabel = &TextLabel{Description: s.Description, BackgroundColor: s.Color}
	}
	return p.create(role, l, func(n string) Resource { l.ResourceName = n; return l })
}

// LinkLabel applies label to a campaign or ad group.
func (p *Plan) LinkLabel(rt ResourceType, target, label Ref) error {
	t, err := p.resolve("label target", target)
	if err != nil {
		return err
	}
	l, err := p.resolve("label", label)
	if err != nil {
		return err
	}
	switch rt {
	case ResourceCampaign:
		p.link(CampaignLabel{Campaign: t, Label: l}, t, l)
	case ResourceAdGroup:
		p.link(AdGroupLabel{AdGroup: t, Label: l}, t, l)
	default:
		return apierr.Validationf(opBuild, "labels cannot be applied to %s", rt)
	}
	return nil
}

type SharedSetSpec struct {
	Name string
	Type string
}

func (p *Plan) CreateSharedSet(role string, s SharedSetSpec) (string, error) {
	if err := ValidateText("shared set name", s.Name, MaxSharedSetName); err != nil {
		return "", err
	}
	typ := s.Type
	if typ == "" {
		typ = "NEGATIVE_KEYWORDS"
	}
	if err := ValidateEnum("shared set type", typ, "NEGATIVE_KEYWORDS", "NEGATIVE_PLACEMENTS"); err != nil {
		return "", err
	}
	ss := SharedSet{Name: s.Name, Type: typ}
	return p.create(role, ss, func(n string) Resource { ss.ResourceName = n; return ss })
}

// CreateSharedCriterion adds a keyword to a shared set.
func (p *Plan) CreateSharedCriterion(sharedSet Ref, text, matchType string) error {
	if err := ValidateText("keyword", text, MaxKeyword); err != nil {
		return err
	}
	if err := ValidateMatchType(matchType); err != nil {
		return err
	}
	ss, err := p.resolve("shared set", sharedSet)
	if err != nil {
		return err
	}
	p.link(SharedCriterion{SharedSet: ss, Keyword: &KeywordInfo{Text: text, MatchType: matchType}}, ss)
	return nil
}

func (p *Plan) LinkSharedSet(campaign, sharedSet Ref) error {
	c, err := p.resolve("campaign", campaign)
	if err != nil {
		return err
	}
	ss, err := p.resolve("shared set", sharedSet)
	if err != nil {
		return err
	}
	p.link(CampaignSharedSet{Campaign: c, SharedSet: ss}, c, ss)
	return nil
}

func textAssets(texts []string) []AdTextAsset {
	out := make([]AdTextAsset, len(texts))
	for i, t := range texts {
		out[i] = AdTextAsset{Text: t}
	}
	return out
}

func validatePaths(path1, path2 string) error {
	if path2 != "" && path1 == "" {
		return apierr.Validationf(opBuild, "path2 requires path1")
	}
	for _, path := range []string{path1, path2} {
		if path != "" {
			if err := ValidateText("display path", path, MaxPath); err != nil {
				return err
			}
		}
	}
	return nil
}
