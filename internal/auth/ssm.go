package auth

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rs/zerolog/log"
)

// ssmAPI is the subset of *ssm.Client the resolver needs.
type ssmAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewSSMClient loads the default AWS config and returns an SSM client.
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return ssm.NewFromConfig(cfg), nil
}

// getParameter reads <prefix>/<name>. A missing parameter is not an error
// and yields "".
func getParameter(ctx context.Context, client ssmAPI, prefix, name string) (string, error) {
	paramName := path.Join(prefix, name)
	start := time.Now()

	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			log.Debug().Str("param", paramName).Msg("SSM parameter not found")
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s from SSM: %w", paramName, err)
	}
	if result.Parameter == nil {
		return "", nil
	}

	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
	return aws.ToString(result.Parameter.Value), nil
}
