// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package awscloud

import (
	"context"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// serviceRegionsPath is the public SSM parameter tree listing the regions
// each AWS service is offered in.
const serviceRegionsPath = "/aws/service/global-infrastructure/services"

type directory struct {
	ec2 *ec2.Client
	ssm *ssm.Client
}

func (d *directory) EnabledRegions(ctx context.Context) ([]string, error) {
	output, err := d.ec2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	regions := make([]string, 0, len(output.Regions))
	for _, region := range output.Regions {
		regions = append(regions, aws.ToString(region.RegionName))
	}
	return regions, nil
}

func (d *directory) ServiceRegions(ctx context.Context, service string) ([]string, error) {
	var regions []string
	paginator := ssm.NewGetParametersByPathPaginator(d.ssm, &ssm.GetParametersByPathInput{
		Path: aws.String(path.Join(serviceRegionsPath, service, "regions")),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, parameter := range page.Parameters {
			regions = append(regions, aws.ToString(parameter.Value))
		}
	}
	return regions, nil
}
