// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package awscloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/bureau-foundation/layercast/lib/cloud"
)

type layerService struct {
	client *lambda.Client
	region string
}

func (l *layerService) ListLayers(ctx context.Context) ([]cloud.LayerSummary, error) {
	var summaries []cloud.LayerSummary
	paginator := lambda.NewListLayersPaginator(l.client, &lambda.ListLayersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Layers {
			summary := cloud.LayerSummary{
				Name:     aws.ToString(item.LayerName),
				LayerARN: aws.ToString(item.LayerArn),
			}
			if latest := item.LatestMatchingVersion; latest != nil {
				summary.Latest = cloud.LayerVersion{
					LayerName:               summary.Name,
					LayerARN:                summary.LayerARN,
					LayerVersionARN:         aws.ToString(latest.LayerVersionArn),
					Version:                 latest.Version,
					Description:             aws.ToString(latest.Description),
					CreatedDate:             aws.ToString(latest.CreatedDate),
					LicenseInfo:             aws.ToString(latest.LicenseInfo),
					CompatibleRuntimes:      runtimeNames(latest.CompatibleRuntimes),
					CompatibleArchitectures: architectureNames(latest.CompatibleArchitectures),
				}
			}
			summaries = append(summaries, summary)
		}
	}
	return summaries, nil
}

func (l *layerService) GetLayerVersion(ctx context.Context, name string, version int64) (cloud.LayerVersion, error) {
	output, err := l.client.GetLayerVersion(ctx, &lambda.GetLayerVersionInput{
		LayerName:     aws.String(name),
		VersionNumber: aws.Int64(version),
	})
	if err != nil {
		return cloud.LayerVersion{}, notFound(err)
	}
	record := cloud.LayerVersion{
		LayerName:               name,
		LayerARN:                aws.ToString(output.LayerArn),
		LayerVersionARN:         aws.ToString(output.LayerVersionArn),
		Version:                 output.Version,
		Description:             aws.ToString(output.Description),
		CreatedDate:             aws.ToString(output.CreatedDate),
		LicenseInfo:             aws.ToString(output.LicenseInfo),
		CompatibleRuntimes:      runtimeNames(output.CompatibleRuntimes),
		CompatibleArchitectures: architectureNames(output.CompatibleArchitectures),
	}
	fillContent(&record, output.Content)
	return record, nil
}

func (l *layerService) GetLayerVersionPolicy(ctx context.Context, name string, version int64) (string, error) {
	output, err := l.client.GetLayerVersionPolicy(ctx, &lambda.GetLayerVersionPolicyInput{
		LayerName:     aws.String(name),
		VersionNumber: aws.Int64(version),
	})
	if err != nil {
		return "", notFound(err)
	}
	return aws.ToString(output.Policy), nil
}

func (l *layerService) PublishLayerVersion(ctx context.Context, input cloud.PublishInput) (cloud.LayerVersion, error) {
	runtimes := make([]types.Runtime, 0, len(input.CompatibleRuntimes))
	for _, runtime := range input.CompatibleRuntimes {
		runtimes = append(runtimes, types.Runtime(runtime))
	}
	architectures := make([]types.Architecture, 0, len(input.CompatibleArchitectures))
	for _, architecture := range input.CompatibleArchitectures {
		architectures = append(architectures, types.Architecture(architecture))
	}

	output, err := l.client.PublishLayerVersion(ctx, &lambda.PublishLayerVersionInput{
		LayerName:   aws.String(input.LayerName),
		Description: aws.String(input.Description),
		LicenseInfo: aws.String(input.LicenseInfo),
		Content: &types.LayerVersionContentInput{
			S3Bucket: aws.String(input.Content.Bucket),
			S3Key:    aws.String(input.Content.Key),
		},
		CompatibleRuntimes:      runtimes,
		CompatibleArchitectures: architectures,
	})
	if err != nil {
		return cloud.LayerVersion{}, err
	}
	record := cloud.LayerVersion{
		LayerName:               input.LayerName,
		LayerARN:                aws.ToString(output.LayerArn),
		LayerVersionARN:         aws.ToString(output.LayerVersionArn),
		Version:                 output.Version,
		Description:             aws.ToString(output.Description),
		CreatedDate:             aws.ToString(output.CreatedDate),
		LicenseInfo:             aws.ToString(output.LicenseInfo),
		CompatibleRuntimes:      runtimeNames(output.CompatibleRuntimes),
		CompatibleArchitectures: architectureNames(output.CompatibleArchitectures),
	}
	fillContent(&record, output.Content)
	return record, nil
}

func (l *layerService) AddPermission(ctx context.Context, name string, version int64, grant cloud.Grant) error {
	_, err := l.client.AddLayerVersionPermission(ctx, &lambda.AddLayerVersionPermissionInput{
		LayerName:     aws.String(name),
		VersionNumber: aws.Int64(version),
		StatementId:   aws.String(grant.StatementID),
		Action:        aws.String(grant.Action),
		Principal:     aws.String(grant.Principal),
	})
	return err
}

func (l *layerService) RemovePermission(ctx context.Context, name string, version int64, statementID string) error {
	_, err := l.client.RemoveLayerVersionPermission(ctx, &lambda.RemoveLayerVersionPermissionInput{
		LayerName:     aws.String(name),
		VersionNumber: aws.Int64(version),
		StatementId:   aws.String(statementID),
	})
	return notFound(err)
}

func fillContent(record *cloud.LayerVersion, content *types.LayerVersionContentOutput) {
	if content == nil {
		return
	}
	record.CodeSHA256 = aws.ToString(content.CodeSha256)
	record.CodeSize = content.CodeSize
	record.SigningJobARN = aws.ToString(content.SigningJobArn)
	record.SigningProfileVersionARN = aws.ToString(content.SigningProfileVersionArn)
}

func runtimeNames(runtimes []types.Runtime) []string {
	names := make([]string, len(runtimes))
	for i, runtime := range runtimes {
		names[i] = string(runtime)
	}
	return names
}

func architectureNames(architectures []types.Architecture) []string {
	names := make([]string, len(architectures))
	for i, architecture := range architectures {
		names[i] = string(architecture)
	}
	return names
}
