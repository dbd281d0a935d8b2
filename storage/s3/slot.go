// Package s3 keeps each slot as a JSON object in an S3 (or S3 compatible) bucket.
package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
)

var ErrNoBucket = errors.New("s3 bucket is required")

type SlotStorage struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ core.SlotStorage = (*SlotStorage)(nil)

// New builds a client from the default AWS credential chain.
func New(ctx context.Context, conf core.S3Config, optFns ...func(*s3.Options)) (*SlotStorage, error) {
	if conf.Bucket == "" {
		return nil, ErrNoBucket
	}
	awsConf, err := config.LoadDefaultConfig(ctx, config.WithRegion(conf.Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	opts := []func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = conf.PathStyle
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	}}
	client := s3.NewFromConfig(awsConf, append(opts, optFns...)...)
	return NewWithClient(client, conf.Bucket, conf.Prefix), nil
}

func NewWithClient(client *s3.Client, bucket, prefix string) *SlotStorage {
	return &SlotStorage{client: client, bucket: bucket, prefix: prefix}
}

func (s *SlotStorage) key(slot string) string {
	return s.prefix + slot + ".json"
}

func (s *SlotStorage) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(slot)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "getting object %q", s.key(slot))
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading object %q", s.key(slot))
	}
	return data, true, nil
}

func (s *SlotStorage) Save(ctx context.Context, slot string, value []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(slot)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("application/json"),
	})
	return errors.Wrapf(err, "putting object %q", s.key(slot))
}

func (s *SlotStorage) Close() error { return nil }

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
