// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package awscloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

type distributionService struct {
	client *cloudfront.Client
}

func (d *distributionService) CreateInvalidation(ctx context.Context, distributionID string, paths []string, callerReference string) (string, error) {
	output, err := d.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(callerReference),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(output.Invalidation.Id), nil
}

func (d *distributionService) GetInvalidation(ctx context.Context, distributionID, invalidationID string) (string, error) {
	output, err := d.client.GetInvalidation(ctx, &cloudfront.GetInvalidationInput{
		DistributionId: aws.String(distributionID),
		Id:             aws.String(invalidationID),
	})
	if err != nil {
		return "", notFound(err)
	}
	return aws.ToString(output.Invalidation.Status), nil
}
