package cloudfront

import (
	"context"
	"encoding/json"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/driftkit/driftkit/internal/config"
)

// API is the slice of the CloudFront service client the plugin drives.
// *cloudfront.Client satisfies it; tests substitute a fake.
type API interface {
	ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
	ListTagsForResource(ctx context.Context, params *cloudfront.ListTagsForResourceInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListTagsForResourceOutput, error)
	GetDistributionConfig(ctx context.Context, params *cloudfront.GetDistributionConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionConfigOutput, error)
	CreateDistributionWithTags(ctx context.Context, params *cloudfront.CreateDistributionWithTagsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateDistributionWithTagsOutput, error)
	UpdateDistribution(ctx context.Context, params *cloudfront.UpdateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateDistributionOutput, error)
	TagResource(ctx context.Context, params *cloudfront.TagResourceInput, optFns ...func(*cloudfront.Options)) (*cloudfront.TagResourceOutput, error)
}

// APIFactory builds a service client from a connection profile.
type APIFactory func(context.Context, config.Profile) (API, error)

// NewAPI builds a CloudFront client from the ambient AWS credential
// chain, honoring the profile's region and named shared-config profile.
func NewAPI(ctx context.Context, profile config.Profile) (API, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if profile.Region != "" {
		opts = append(opts, awsconfig.WithRegion(profile.Region))
	}
	if profile.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile.AWSProfile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return cloudfront.NewFromConfig(cfg), nil
}

// distributionConfigFromMap converts a declared config map into the
// service type. The SDK's field names are the CloudFront wire names,
// so a JSON round-trip is the whole conversion.
func distributionConfigFromMap(m map[string]any) (*types.DistributionConfig, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg types.DistributionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// distributionConfigToMap is the inverse conversion, for diffing the
// observed config against the declared one.
func distributionConfigToMap(cfg *types.DistributionConfig) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// normalizeMap round-trips an arbitrary YAML-decoded map through JSON
// so its scalars take the same representation the observed state does.
func normalizeMap(m map[string]any) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func tagsToMap(tags []types.Tag) map[string]any {
	out := make(map[string]any, len(tags))
	for _, tag := range tags {
		if tag.Key == nil {
			continue
		}
		value := ""
		if tag.Value != nil {
			value = *tag.Value
		}
		out[*tag.Key] = value
	}
	return out
}

func tagsFromMap(tags map[string]string) []types.Tag {
	out := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		key, value := k, v
		out = append(out, types.Tag{Key: &key, Value: &value})
	}
	return out
}
