// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package awscloud implements the cloud surfaces on AWS: Lambda layers,
// AWS Signer, CloudFront invalidations, EC2 and SSM region discovery,
// and S3 object storage through minio-go.
//
// Clients are created once per run and are safe for concurrent use.
// Transient API failures are retried by the SDK's standard retryer up to
// the configured attempt count.
package awscloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/signer"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go"

	"github.com/bureau-foundation/layercast/lib/cloud"
)

// Options configures the AWS clients.
type Options struct {
	// PrimaryRegion is the home region for signing, CloudFront, and
	// region discovery.
	PrimaryRegion string

	// MaxAttempts bounds retries of transient failures per call.
	MaxAttempts int

	// AppID is appended to the SDK user agent.
	AppID string
}

// Session holds the shared SDK configuration.
type Session struct {
	config  aws.Config
	primary string
}

// NewSession loads the default AWS credential chain and configuration.
func NewSession(ctx context.Context, options Options) (*Session, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(options.PrimaryRegion),
		awsconfig.WithRetryMaxAttempts(options.MaxAttempts),
	}
	if options.AppID != "" {
		loadOptions = append(loadOptions, awsconfig.WithAppID(options.AppID))
	}
	config, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	return &Session{config: config, primary: options.PrimaryRegion}, nil
}

// Directory returns region discovery backed by EC2 and SSM public
// parameters.
func (s *Session) Directory() cloud.RegionDirectory {
	return &directory{
		ec2: ec2.NewFromConfig(s.config),
		ssm: ssm.NewFromConfig(s.config),
	}
}

// EnvironmentOptions names the buckets of an Environment.
type EnvironmentOptions struct {
	Regions              cloud.Regions
	ArtifactBucketPrefix string
}

// Environment builds a cloud.Environment with one Lambda client per
// deployment region.
func (s *Session) Environment(options EnvironmentOptions) (*cloud.Environment, error) {
	objects, err := newObjectStore()
	if err != nil {
		return nil, err
	}

	layers := make(map[string]cloud.LayerService, len(options.Regions.Deploy))
	for _, region := range options.Regions.Deploy {
		client := lambda.NewFromConfig(s.config, func(o *lambda.Options) {
			o.Region = region
		})
		layers[region] = &layerService{client: client, region: region}
	}

	return &cloud.Environment{
		PrimaryRegion:        s.primary,
		Regions:              options.Regions.Deploy,
		SigningRegions:       options.Regions.Signing,
		ArtifactBucketPrefix: options.ArtifactBucketPrefix,
		Layers:               layers,
		Objects:              objects,
		Signer:               &signingService{client: signer.NewFromConfig(s.config), region: s.primary},
		CDN:                  &distributionService{client: cloudfront.NewFromConfig(s.config)},
	}, nil
}

// notFound maps the SDK's missing-resource errors to cloud.ErrNotFound.
func notFound(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", cloud.ErrNotFound, err)
		}
	}
	return err
}
