// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package awscloud

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/signer"
	"github.com/aws/aws-sdk-go-v2/service/signer/types"

	"github.com/bureau-foundation/layercast/lib/cloud"
)

type signingService struct {
	client *signer.Client
	region string
}

func (s *signingService) StartSigningJob(ctx context.Context, input cloud.StartSigningInput) (string, error) {
	output, err := s.client.StartSigningJob(ctx, &signer.StartSigningJobInput{
		Source: &types.Source{S3: &types.S3Source{
			BucketName: aws.String(input.Source.Bucket),
			Key:        aws.String(input.Source.Key),
			Version:    aws.String(input.SourceVersion),
		}},
		Destination: &types.Destination{S3: &types.S3Destination{
			BucketName: aws.String(input.Destination.Bucket),
			Prefix:     aws.String(input.Destination.Key),
		}},
		ProfileName:        aws.String(input.ProfileName),
		ClientRequestToken: aws.String(input.ClientRequestToken),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(output.JobId), nil
}

func (s *signingService) DescribeSigningJob(ctx context.Context, jobID string) (cloud.SigningJob, error) {
	output, err := s.client.DescribeSigningJob(ctx, &signer.DescribeSigningJobInput{
		JobId: aws.String(jobID),
	})
	if err != nil {
		return cloud.SigningJob{}, notFound(err)
	}
	job := cloud.SigningJob{
		JobID:  jobID,
		Status: cloud.SigningStatus(output.Status),
		Reason: aws.ToString(output.StatusReason),
	}
	if output.SignedObject != nil && output.SignedObject.S3 != nil {
		job.Signed = cloud.ObjectRef{
			Region: s.region,
			Bucket: aws.ToString(output.SignedObject.S3.BucketName),
			Key:    aws.ToString(output.SignedObject.S3.Key),
		}
	}
	return job, nil
}
