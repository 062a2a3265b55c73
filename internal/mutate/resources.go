package mutate

// Resource is the payload of a create or update Operation. The set of
// implementations is closed: only the types in this file satisfy it.
type Resource interface {
	ResourceType() ResourceType
	resource()
}

type Budget struct {
	ResourceName     string `json:"resourceName,omitempty"`
	Name             string `json:"name,omitempty"`
	AmountMicros     int64  `json:"amountMicros,omitempty,string"`
	DeliveryMethod   string `json:"deliveryMethod,omitempty"`
	ExplicitlyShared *bool  `json:"explicitlyShared,omitempty"`
}

type Campaign struct {
	ResourceName            string                   `json:"resourceName,omitempty"`
	Name                    string                   `json:"name,omitempty"`
	Status                  string                   `json:"status,omitempty"`
	AdvertisingChannelType  string                   `json:"advertisingChannelType,omitempty"`
	CampaignBudget          string                   `json:"campaignBudget,omitempty"`
	StartDate               string                   `json:"startDate,omitempty"`
	EndDate                 string                   `json:"endDate,omitempty"`
	ManualCpc               *ManualCpc               `json:"manualCpc,omitempty"`
	TargetSpend             *TargetSpend             `json:"targetSpend,omitempty"`
	MaximizeConversions     *MaximizeConversions     `json:"maximizeConversions,omitempty"`
	MaximizeConversionValue *MaximizeConversionValue `json:"maximizeConversionValue,omitempty"`
	TargetCpa               *TargetCpa               `json:"targetCpa,omitempty"`
	TargetRoas              *TargetRoas              `json:"targetRoas,omitempty"`
	NetworkSettings         *NetworkSettings         `json:"networkSettings,omitempty"`
}

type ManualCpc struct {
	EnhancedCpcEnabled bool `json:"enhancedCpcEnabled"`
}

type TargetSpend struct {
	CpcBidCeilingMicros int64 `json:"cpcBidCeilingMicros,omitempty,string"`
}

type MaximizeConversions struct {
	TargetCpaMicros int64 `json:"targetCpaMicros,omitempty,string"`
}

type MaximizeConversionValue struct {
	TargetRoas float64 `json:"targetRoas,omitempty"`
}

type TargetCpa struct {
	TargetCpaMicros int64 `json:"targetCpaMicros,omitempty,string"`
}

type TargetRoas struct {
	TargetRoas float64 `json:"targetRoas,omitempty"`
}

type NetworkSettings struct {
	TargetGoogleSearch   *bool `json:"targetGoogleSearch,omitempty"`
	TargetSearchNetwork  *bool `json:"targetSearchNetwork,omitempty"`
	TargetContentNetwork *bool `json:"targetContentNetwork,omitempty"`
}

type AssetGroup struct {
	ResourceName string   `json:"resourceName,omitempty"`
	Name         string   `json:"name,omitempty"`
	Campaign     string   `json:"campaign,omitempty"`
	Status       string   `json:"status,omitempty"`
	FinalUrls    []string `json:"finalUrls,omitempty"`
	Path1        string   `json:"path1,omitempty"`
	Path2        string   `json:"path2,omitempty"`
}

type Asset struct {
	ResourceName string     `json:"resourceName,omitempty"`
	Name         string     `json:"name,omitempty"`
	TextAsset    *TextAsset `json:"textAsset,omitempty"`
	FinalUrls    []string   `json:"finalUrls,omitempty"`
}

type TextAsset struct {
	Text string `json:"text"`
}

type AssetGroupAsset struct {
	AssetGroup string `json:"assetGroup"`
	Asset      string `json:"asset"`
	FieldType  string `json:"fieldType"`
}

type ListingGroupFilter struct {
	ResourceName             string            `json:"resourceName,omitempty"`
	AssetGroup               string            `json:"assetGroup"`
	Type                     string            `json:"type"`
	ListingSource            string            `json:"listingSource,omitempty"`
	ParentListingGroupFilter string            `json:"parentListingGroupFilter,omitempty"`
	CaseValue                *ListingDimension `json:"caseValue,omitempty"`
}

type ListingDimension struct {
	ProductBrand *ProductBrand `json:"productBrand,omitempty"`
}

// ProductBrand with an empty Value matches every brand not covered by a sibling.
type ProductBrand struct {
	Value string `json:"value,omitempty"`
}

type AdGroup struct {
	ResourceName string `json:"resourceName,omitempty"`
	Name         string `json:"name,omitempty"`
	Campaign     string `json:"campaign,omitempty"`
	Status       string `json:"status,omitempty"`
	Type         string `json:"type,omitempty"`
	CpcBidMicros int64  `json:"cpcBidMicros,omitempty,string"`
}

type AdGroupCriterion struct {
	ResourceName string       `json:"resourceName,omitempty"`
	AdGroup      string       `json:"adGroup,omitempty"`
	Status       string       `json:"status,omitempty"`
	Keyword      *KeywordInfo `json:"keyword,omitempty"`
	CpcBidMicros int64        `json:"cpcBidMicros,omitempty,string"`
	FinalUrls    []string     `json:"finalUrls,omitempty"`
}

type KeywordInfo struct {
	Text      string `json:"text"`
	MatchType string `json:"matchType"`
}

type AdGroupAd struct {
	ResourceName string `json:"resourceName,omitempty"`
	AdGroup      string `json:"adGroup,omitempty"`
	Status       string `json:"status,omitempty"`
	Ad           *Ad    `json:"ad,omitempty"`
}

type Ad struct {
	FinalUrls          []string                `json:"finalUrls,omitempty"`
	ResponsiveSearchAd *ResponsiveSearchAdInfo `json:"responsiveSearchAd,omitempty"`
}

type ResponsiveSearchAdInfo struct {
	Headlines    []AdTextAsset `json:"headlines"`
	Descriptions []AdTextAsset `json:"descriptions"`
	Path1        string        `json:"path1,omitempty"`
	Path2        string        `json:"path2,omitempty"`
}

type AdTextAsset struct {
	Text string `json:"text"`
}

type Label struct {
	ResourceName string     `json:"resourceName,omitempty"`
	Name         string     `json:"name,omitempty"`
	TextLabel    *TextLabel `json:"textLabel,omitempty"`
}

type TextLabel struct {
	Description     string `json:"description,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

type CampaignLabel struct {
	Campaign string `json:"campaign"`
	Label    string `json:"label"`
}

type AdGroupLabel struct {
	AdGroup string `json:"adGroup"`
	Label   string `json:"label"`
}

type CampaignAsset struct {
	Campaign  string `json:"campaign"`
	Asset     string `json:"asset"`
	FieldType string `json:"fieldType"`
}

type SharedSet struct {
	ResourceName string `json:"resourceName,omitempty"`
	Name         string `json:"name,omitempty"`
	Type         string `json:"type,omitempty"`
}

type SharedCriterion struct {
	SharedSet string       `json:"sharedSet"`
	Keyword   *KeywordInfo `json:"keyword,omitempty"`
}

type CampaignSharedSet struct {
	Campaign  string `json:"campaign"`
	SharedSet string `json:"sharedSet"`
}

func (Budget) ResourceType() ResourceType             { return ResourceBudget }
func (Campaign) ResourceType() ResourceType           { return ResourceCampaign }
func (AssetGroup) ResourceType() ResourceType         { return ResourceAssetGroup }
func (Asset) ResourceType() ResourceType              { return ResourceAsset }
func (AssetGroupAsset) ResourceType() ResourceType    { return ResourceAssetGroupAsset }
func (ListingGroupFilter) ResourceType() ResourceType { return ResourceListingGroupFilter }
func (AdGroup) ResourceType() ResourceType            { return ResourceAdGroup }
func (AdGroupCriterion) ResourceType() ResourceType   { return ResourceCriterion }
func (AdGroupAd) ResourceType() ResourceType          { return ResourceAdGroupAd }
func (Label) ResourceType() ResourceType              { return ResourceLabel }
func (CampaignLabel) ResourceType() ResourceType      { return ResourceCampaignLabel }
func (AdGroupLabel) ResourceType() ResourceType       { return ResourceAdGroupLabel }
func (CampaignAsset) ResourceType() ResourceType      { return ResourceCampaignAsset }
func (SharedSet) ResourceType() ResourceType          { return ResourceSharedSet }
func (SharedCriterion) ResourceType() ResourceType    { return ResourceSharedCriterion }
func (CampaignSharedSet) ResourceType() ResourceType  { return ResourceCampaignSharedSet }

func (Budget) resource()             {}
func (Campaign) resource()           {}
func (AssetGroup) resource()         {}
func (Asset) resource()              {}
func (AssetGroupAsset) resource()    {}
func (ListingGroupFilter) resource() {}
func (AdGroup) resource()            {}
func (AdGroupCriterion) resource()   {}
func (AdGroupAd) resource()          {}
func (Label) resource()              {}
func (CampaignLabel) resource()      {}
func (AdGroupLabel) resource()       {}
func (CampaignAsset) resource()      {}
func (SharedSet) resource()          {}
func (SharedCriterion) resource()    {}
func (CampaignSharedSet) resource()  {}
