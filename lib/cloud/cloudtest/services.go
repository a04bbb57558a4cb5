// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cloudtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/bureau-foundation/layercast/lib/cloud"
)

type objectStore Cloud

func (s *objectStore) PutFile(ctx context.Context, ref cloud.ObjectRef, path, contentType string) (cloud.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return cloud.PutResult{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cloud.PutResult{}, err
	}
	c := (*Cloud)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts.Uploads++
	c.objects[ref.Bucket+"/"+ref.Key] = object{data: data}
	return cloud.PutResult{VersionID: fmt.Sprintf("v%d", c.counts.Uploads), Size: int64(len(data))}, nil
}

func (s *objectStore) PutBytes(ctx context.Context, ref cloud.ObjectRef, data []byte, contentType string) (cloud.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return cloud.PutResult{}, err
	}
	c := (*Cloud)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts.Documents++
	c.objects[ref.Bucket+"/"+ref.Key] = object{data: append([]byte(nil), data...)}
	return cloud.PutResult{Size: int64(len(data))}, nil
}

func (s *objectStore) Copy(ctx context.Context, source, destination cloud.ObjectRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := (*Cloud)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.objects[source.Bucket+"/"+source.Key]
	if !ok {
		return fmt.Errorf("copying %s: %w", source, cloud.ErrNotFound)
	}
	c.counts.Copies++
	c.objects[destination.Bucket+"/"+destination.Key] = stored
	return nil
}

func (s *objectStore) Get(ctx context.Context, ref cloud.ObjectRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := (*Cloud)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.objects[ref.Bucket+"/"+ref.Key]
	if !ok {
		return nil, fmt.Errorf("getting %s: %w", ref, cloud.ErrNotFound)
	}
	return append([]byte(nil), stored.data...), nil
}

type regionLayers struct {
	cloud  *Cloud
	region string
}

func (r *regionLayers) ListLayers(ctx context.Context) ([]cloud.LayerSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	return r.cloud.latestSummaries(r.region), nil
}

func (r *regionLayers) GetLayerVersion(ctx context.Context, name string, version int64) (cloud.LayerVersion, error) {
	if err := ctx.Err(); err != nil {
		return cloud.LayerVersion{}, err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	found, err := r.cloud.findVersion(r.region, name, version)
	if err != nil {
		return cloud.LayerVersion{}, err
	}
	return found.record, nil
}

func (r *regionLayers) GetLayerVersionPolicy(ctx context.Context, name string, version int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	found, err := r.cloud.findVersion(r.region, name, version)
	if err != nil {
		return "", err
	}
	if found.rawPolicy != "" {
		return found.rawPolicy, nil
	}
	if len(found.policy) == 0 {
		return "", fmt.Errorf("policy of %s:%d: %w", name, version, cloud.ErrNotFound)
	}
	policy := cloud.Policy{Version: "2012-10-17", ID: "default", Statement: found.policy}
	data, err := json.Marshal(policy)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *regionLayers) PublishLayerVersion(ctx context.Context, input cloud.PublishInput) (cloud.LayerVersion, error) {
	if err := ctx.Err(); err != nil {
		return cloud.LayerVersion{}, err
	}
	c := r.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.PublishErrors[r.region]; err != nil {
		return cloud.LayerVersion{}, err
	}
	if input.Content.Region != r.region {
		return cloud.LayerVersion{}, fmt.Errorf("publishing %s in %s from content in %s", input.LayerName, r.region, input.Content.Region)
	}
	content, ok := c.objects[input.Content.Bucket+"/"+input.Content.Key]
	if !ok {
		return cloud.LayerVersion{}, fmt.Errorf("publishing %s: content %s: %w", input.LayerName, input.Content, cloud.ErrNotFound)
	}

	c.counts.Publishes++
	versions := c.layers[r.region][input.LayerName]
	record := cloud.LayerVersion{
		LayerName:               input.LayerName,
		LayerARN:                layerARN(r.region, input.LayerName),
		Version:                 int64(len(versions) + 1),
		Description:             input.Description,
		CreatedDate:             c.now.Format("2006-01-02T15:04:05.000-0700"),
		LicenseInfo:             input.LicenseInfo,
		CompatibleRuntimes:      input.CompatibleRuntimes,
		CompatibleArchitectures: input.CompatibleArchitectures,
		CodeSHA256:              digest(content.data),
		CodeSize:                int64(len(content.data)),
	}
	record.LayerVersionARN = fmt.Sprintf("%s:%d", record.LayerARN, record.Version)
	if content.signed {
		record.SigningJobARN = "arn:aws:signer:" + r.region + ":" + accountID + ":/signing-jobs/" + input.Content.Key
		record.SigningProfileVersionARN = signingProfileARN
	}
	c.layers[r.region][input.LayerName] = append(versions, &layerVersion{record: record})
	return record, nil
}

func (r *regionLayers) AddPermission(ctx context.Context, name string, version int64, grant cloud.Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	found, err := r.cloud.findVersion(r.region, name, version)
	if err != nil {
		return err
	}
	for _, statement := range found.policy {
		if statement.Sid == grant.StatementID {
			return fmt.Errorf("statement %s already exists on %s:%d", grant.StatementID, name, version)
		}
	}
	r.cloud.counts.Grants++
	found.policy = append(found.policy, PublicStatement(grant))
	return nil
}

func (r *regionLayers) RemovePermission(ctx context.Context, name string, version int64, statementID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.cloud.mu.Lock()
	defer r.cloud.mu.Unlock()
	found, err := r.cloud.findVersion(r.region, name, version)
	if err != nil {
		return err
	}
	index := slices.IndexFunc(found.policy, func(statement cloud.Statement) bool {
		return statement.Sid == statementID
	})
	if index < 0 {
		return fmt.Errorf("statement %s on %s:%d: %w", statementID, name, version, cloud.ErrNotFound)
	}
	r.cloud.counts.Removals++
	found.policy = slices.Delete(found.policy, index, index+1)
	return nil
}

type signer Cloud

func (s *signer) StartSigningJob(ctx context.Context, input cloud.StartSigningInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := (*Cloud)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.objects[input.Source.Bucket+"/"+input.Source.Key]; !ok {
		return "", fmt.Errorf("signing %s: %w", input.Source, cloud.ErrNotFound)
	}
	c.counts.SigningJobs++
	jobID := fmt.Sprintf("job-%d", c.counts.SigningJobs)
	c.jobs[jobID] = &signingJob{input: input}
	return jobID, nil
}

func (s *signer) DescribeSigningJob(ctx context.Context, jobID string) (cloud.SigningJob, error) {
	if err := ctx.Err(); err != nil {
		return cloud.SigningJob{}, err
	}
	c := (*Cloud)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return cloud.SigningJob{}, fmt.Errorf("signing job %s: %w", jobID, cloud.ErrNotFound)
	}
	job.polls++
	if len(c.SigningStatuses) > 0 {
		status := c.SigningStatuses[min(job.polls, len(c.SigningStatuses))-1]
		if status != cloud.SigningSucceeded {
			return cloud.SigningJob{JobID: jobID, Status: status}, nil
		}
	} else if job.polls <= c.SigningPolls {
		return cloud.SigningJob{JobID: jobID, Status: cloud.SigningInProgress}, nil
	}
	if c.SigningFailure != "" {
		return cloud.SigningJob{JobID: jobID, Status: cloud.SigningFailed, Reason: c.SigningFailure}, nil
	}

	signed := cloud.ObjectRef{
		Region: job.input.Destination.Region,
		Bucket: job.input.Destination.Bucket,
		Key:    job.input.Destination.Key + jobID + ".zip",
	}
	source := c.objects[job.input.Source.Bucket+"/"+job.input.Source.Key]
	c.objects[signed.Bucket+"/"+signed.Key] = object{data: source.data, signed: true}
	return cloud.SigningJob{JobID: jobID, Status: cloud.SigningSucceeded, Signed: signed}, nil
}

type cdn Cloud

func (d *cdn) CreateInvalidation(ctx context.Context, distributionID string, paths []string, callerReference string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := (*Cloud)(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts.Invalidations++
	id := fmt.Sprintf("%s-I%d", distributionID, c.counts.Invalidations)
	c.invalidations[id] = 0
	return id, nil
}

func (d *cdn) GetInvalidation(ctx context.Context, distributionID, invalidationID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := (*Cloud)(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	polls, ok := c.invalidations[invalidationID]
	if !ok {
		return "", fmt.Errorf("invalidation %s: %w", invalidationID, cloud.ErrNotFound)
	}
	polls++
	c.invalidations[invalidationID] = polls
	if polls <= c.InvalidationPolls {
		return cloud.InvalidationInProgress, nil
	}
	if c.InvalidationStatus != "" {
		return c.InvalidationStatus, nil
	}
	return cloud.InvalidationCompleted, nil
}

type directory Cloud

func (d *directory) EnabledRegions(ctx context.Context) ([]string, error) {
	c := (*Cloud)(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.regions...), ctx.Err()
}

func (d *directory) ServiceRegions(ctx context.Context, service string) ([]string, error) {
	c := (*Cloud)(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	if regions, ok := c.Services[service]; ok {
		return append([]string(nil), regions...), ctx.Err()
	}
	var regions []string
	for _, region := range c.regions {
		if service != cloud.SignerService || c.signing[region] {
			regions = append(regions, region)
		}
	}
	return regions, ctx.Err()
}
