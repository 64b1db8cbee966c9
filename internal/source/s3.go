package source

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/TobiSchelling/BasketMiner/internal/transaction"
)

const defaultRegion = "us-east-1"

func (r *Reader) s3Client(ctx context.Context) (*s3.Client, error) {
	o := r.opts.S3
	region := o.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if o.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.Profile))
	}
	if o.Credentials != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(o.Credentials))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if o.UsePathStyle {
			so.UsePathStyle = true
		}
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		if o.HTTPClient != nil {
			so.HTTPClient = o.HTTPClient
		}
	}), nil
}

func (r *Reader) readS3(ctx context.Context, loc Location) (transaction.Table, error) {
	client, err := r.s3Client(ctx)
	if err != nil {
		return transaction.Table{}, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &loc.Bucket, Key: &loc.Path})
	if err != nil {
		return transaction.Table{}, fmt.Errorf("get s3://%s/%s: %w", loc.Bucket, loc.Path, err)
	}
	defer out.Body.Close()

	return transaction.ReadCSV(out.Body, transaction.DelimiterFor(loc.Path, r.opts.Delimiter))
}
