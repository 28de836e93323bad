package cloudfront

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/smithy-go"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/model"
	"github.com/driftkit/driftkit/internal/plugin"
	"github.com/driftkit/driftkit/pkg/converge"
	"github.com/driftkit/driftkit/pkg/diffmap"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

type distributionPlugin struct {
	profiles plugin.ProfileResolver
	newAPI   APIFactory
}

// New creates the cloudfront_distribution plugin.
func New(profiles plugin.ProfileResolver) plugin.Plugin {
	return &distributionPlugin{profiles: profiles, newAPI: NewAPI}
}

// NewWithAPI creates the plugin over a fixed service client.
func NewWithAPI(profiles plugin.ProfileResolver, api API) plugin.Plugin {
	return &distributionPlugin{
		profiles: profiles,
		newAPI:   func(context.Context, config.Profile) (API, error) { return api, nil },
	}
}

var _ plugin.Plugin = (*distributionPlugin)(nil)

func (p *distributionPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "cloudfront_distribution",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Stateful:    true,
		Description: "Manages a CloudFront distribution identified by its Name tag.",
	}
}

func (p *distributionPlugin) Schema() any {
	return config.CloudFrontStep{}
}

func (p *distributionPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	req, err := p.request(ctx, step, true)
	if err != nil {
		return nil, err
	}

	res := converge.Converge(ctx, *req)
	if res.Outcome == converge.OutcomeFailed {
		return nil, driftkiterrors.NewPluginError("cloudfront_distribution", fmt.Errorf("%s", res.Comment))
	}

	eval := &model.EvaluationResult{
		StepID:       step.ID,
		CurrentState: model.StatusSatisfied,
		Message:      res.Comment,
		Changes:      res.Changes,
	}
	if res.Outcome == converge.OutcomePreview {
		eval.RequiresAction = true
		eval.CurrentState = model.StatusDrifted
		if model.FromConverge(step.ID, res).Status == model.StatusWouldCreate {
			eval.CurrentState = model.StatusMissing
		}
	}
	return eval, nil
}

func (p *distributionPlugin) Apply(ctx context.Context, _ *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	req, err := p.request(ctx, step, false)
	if err != nil {
		return nil, err
	}

	res := converge.Converge(ctx, *req)
	result := model.FromConverge(step.ID, res)
	if res.Outcome == converge.OutcomeFailed {
		result.Error = fmt.Errorf("%s", res.Comment)
		return result, driftkiterrors.NewExecutionError(step.ID, result.Error)
	}
	return result, nil
}

// observedDistribution captures lookup results the apply closure needs:
// the distribution id and ARN, the update precondition ETag, and the
// complete live config so an update can merge rather than replace.
type observedDistribution struct {
	id         string
	arn        string
	etag       string
	fullConfig map[string]any
}

func (p *distributionPlugin) request(ctx context.Context, step *config.Step, dryRun bool) (*converge.Request, error) {
	if step.CloudFront == nil {
		return nil, driftkiterrors.NewValidationError(step.ID, "missing cloudfront configuration", nil)
	}
	cfg := step.CloudFront

	profile, ok := p.profiles.Profile(step.Profile)
	if !ok {
		return nil, driftkiterrors.NewValidationError(step.ID, fmt.Sprintf("unknown profile %q", step.Profile), nil)
	}
	api, err := p.newAPI(ctx, profile)
	if err != nil {
		return nil, err
	}

	desiredConfig, err := normalizeMap(cfg.Config)
	if err != nil {
		return nil, driftkiterrors.NewValidationError(step.ID, "invalid distribution config", err)
	}

	// The Name tag is the lookup key, so it is always part of the
	// desired tag set.
	desiredTags := map[string]string{"Name": cfg.Distribution}
	for k, v := range cfg.Tags {
		desiredTags[k] = v
	}
	desiredTagsMap := make(map[string]any, len(desiredTags))
	for k, v := range desiredTags {
		desiredTagsMap[k] = v
	}

	var found *observedDistribution

	fetch := func(ctx context.Context) (map[string]any, error) {
		summary, tags, err := findByNameTag(ctx, api, cfg.Distribution)
		if err != nil {
			return nil, err
		}
		if summary == nil {
			return nil, nil
		}

		out, err := api.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{Id: summary.Id})
		if err != nil {
			// Deleted between the list and the get: treat as absent.
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchDistribution" {
				return nil, nil
			}
			return nil, err
		}
		full, err := distributionConfigToMap(out.DistributionConfig)
		if err != nil {
			return nil, err
		}

		found = &observedDistribution{
			id:         aws.ToString(summary.Id),
			arn:        aws.ToString(summary.ARN),
			etag:       aws.ToString(out.ETag),
			fullConfig: full,
		}

		// Only declared keys count toward drift; the live config
		// carries many defaulted fields the step does not manage.
		return map[string]any{
			"config": subsetKeys(full, desiredConfig),
			"tags":   subsetKeys(tags, desiredTagsMap),
		}, nil
	}

	apply := func(ctx context.Context, _ map[string]any) error {
		if found == nil {
			distConfig, err := distributionConfigFromMap(desiredConfig)
			if err != nil {
				return err
			}
			_, err = api.CreateDistributionWithTags(ctx, &cloudfront.CreateDistributionWithTagsInput{
				DistributionConfigWithTags: &types.DistributionConfigWithTags{
					DistributionConfig: distConfig,
					Tags:               &types.Tags{Items: tagsFromMap(desiredTags)},
				},
			})
			return err
		}

		merged := make(map[string]any, len(found.fullConfig))
		for k, v := range found.fullConfig {
			merged[k] = v
		}
		for k, v := range desiredConfig {
			merged[k] = v
		}
		distConfig, err := distributionConfigFromMap(merged)
		if err != nil {
			return err
		}

		if _, err := api.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
			Id:                 aws.String(found.id),
			IfMatch:            aws.String(found.etag),
			DistributionConfig: distConfig,
		}); err != nil {
			return err
		}

		_, err = api.TagResource(ctx, &cloudfront.TagResourceInput{
			Resource: aws.String(found.arn),
			Tags:     &types.Tags{Items: tagsFromMap(desiredTags)},
		})
		return err
	}

	return &converge.Request{
		Name:    cfg.Distribution,
		Desired: map[string]any{"config": desiredConfig, "tags": desiredTagsMap},
		Fetch:   fetch,
		Apply:   apply,
		DiffFn:  distributionDiff,
		DryRun:  dryRun,
	}, nil
}

// distributionDiff compares the config and tags sections as wholes so
// the change record carries at most one entry per drifted section
// instead of a deep per-field tree.
func distributionDiff(observed, desired map[string]any) diffmap.Result {
	res := diffmap.Result{
		Added:   map[string]any{},
		Removed: map[string]any{},
		Changed: map[string]any{},
	}
	for _, section := range []string{"config", "tags"} {
		obs, _ := observed[section].(map[string]any)
		des, _ := desired[section].(map[string]any)
		if !reflect.DeepEqual(obs, des) {
			part := diffmap.Diff(obs, des)
			if !part.Empty() {
				res.Changed[section] = diffmap.Change{Old: obs, New: des}
			}
		}
	}
	return res
}

// findByNameTag scans distributions for one whose Name tag matches.
// Returns a nil summary when nothing matches.
func findByNameTag(ctx context.Context, api API, name string) (*types.DistributionSummary, map[string]any, error) {
	var marker *string
	for {
		page, err := api.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, nil, err
		}
		list := page.DistributionList
		if list == nil {
			return nil, nil, nil
		}

		for i := range list.Items {
			summary := list.Items[i]
			tagsOut, err := api.ListTagsForResource(ctx, &cloudfront.ListTagsForResourceInput{Resource: summary.ARN})
			if err != nil {
				return nil, nil, err
			}
			var items []types.Tag
			if tagsOut.Tags != nil {
				items = tagsOut.Tags.Items
			}
			tags := tagsToMap(items)
			if tags["Name"] == name {
				return &summary, tags, nil
			}
		}

		if list.IsTruncated == nil || !*list.IsTruncated || list.NextMarker == nil {
			return nil, nil, nil
		}
		marker = list.NextMarker
	}
}

// subsetKeys restricts m to the top-level keys present in keys.
func subsetKeys(m, keys map[string]any) map[string]any {
	out := make(map[string]any, len(keys))
	for k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
