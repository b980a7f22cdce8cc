package secrets

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMClient defines the SSM operations used by the ParameterStore.
// This interface makes the code easier to test by allowing mock
// implementations.
type SSMClient interface {
	PutParameter(
		ctx context.Context,
		params *ssm.PutParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.PutParameterOutput, error)
	GetParameter(
		ctx context.Context,
		params *ssm.GetParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.GetParameterOutput, error)
	DeleteParameter(
		ctx context.Context,
		params *ssm.DeleteParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.DeleteParameterOutput, error)
}

// ParameterStore implements CredentialStore on AWS SSM Parameter Store,
// storing credentials as SecureString parameters.
type ParameterStore struct {
	client SSMClient
}

// NewParameterStore creates a Parameter Store backed credential store.
func NewParameterStore(client SSMClient) *ParameterStore {
	return &ParameterStore{client: client}
}

// Put stores or overwrites the credential as a SecureString parameter.
func (s *ParameterStore) Put(ctx context.Context, ref, value string) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(ref),
		Value:     aws.String(value),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("put credential %s: %w", ref, err)
	}
	return nil
}

// Get retrieves and decrypts the credential stored under ref.
func (s *ParameterStore) Get(ctx context.Context, ref string) (string, error) {
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(ref),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if stderrors.As(err, &notFound) {
			return "", ErrCredentialNotFound
		}
		return "", fmt.Errorf("get credential %s: %w", ref, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", ErrCredentialNotFound
	}
	return *result.Parameter.Value, nil
}

// Delete removes the credential; an already-absent parameter is treated
// as success.
func (s *ParameterStore) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(ref),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if stderrors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("delete credential %s: %w", ref, err)
	}
	return nil
}
