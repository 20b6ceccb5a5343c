package cloud

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/prperemyshlev/platform-services/internal/ports"
)

// S3API is the subset of *s3.Client used by ObjectStore
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObjectTagging(ctx context.Context, params *s3.PutObjectTaggingInput, optFns ...func(*s3.Options)) (*s3.PutObjectTaggingOutput, error)
}

// ObjectStore reads object metadata and tags objects
type ObjectStore struct {
	client S3API
}

var _ ports.ObjectStore = (*ObjectStore)(nil)

// NewObjectStore creates an S3 object store
func NewObjectStore(client S3API) *ObjectStore {
	return &ObjectStore{client: client}
}

// Head returns content type and size of an object
func (o *ObjectStore) Head(ctx context.Context, bucket, key string) (ports.ObjectInfo, error) {
	out, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ports.ObjectInfo{}, fmt.Errorf("failed to head s3://%s/%s: %w", bucket, key, err)
	}

	return ports.ObjectInfo{
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

// Tag replaces the tag set of an object
func (o *ObjectStore) Tag(ctx context.Context, bucket, key string, tags map[string]string) error {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tagSet := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		tagSet = append(tagSet, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}

	if _, err := o.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(bucket),
		Key:     aws.String(key),
		Tagging: &types.Tagging{TagSet: tagSet},
	}); err != nil {
		return fmt.Errorf("failed to tag s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
