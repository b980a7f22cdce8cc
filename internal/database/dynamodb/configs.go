// Package dynamodb implements DynamoDB-based storage for mcpbox.
// It provides persistence for provisioning configs with conditional
// writes guarding against lost updates.
package dynamodb

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"mcpbox/internal/api"
	apperrors "mcpbox/internal/errors"
	"mcpbox/internal/logger"
)

// ConfigRepository implements database.ConfigRepository using DynamoDB.
type ConfigRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *slog.Logger
}

// NewConfigRepository creates a new DynamoDB-backed config repository.
func NewConfigRepository(client *dynamodb.Client, tableName string, log *slog.Logger) *ConfigRepository {
	return &ConfigRepository{
		client:    client,
		tableName: tableName,
		logger:    log,
	}
}

// configItem represents the structure stored in DynamoDB.
// This keeps the database schema separate from the API types.
type configItem struct {
	InstallationID   string    `dynamodbav:"installation_id"` // Partition key
	ID               string    `dynamodbav:"id"`
	AccountID        string    `dynamodbav:"account_id,omitempty"`
	AccountRef       string    `dynamodbav:"account_ref,omitempty"`
	CompletedStep    int       `dynamodbav:"completed_step"`
	Status           string    `dynamodbav:"status"`
	TunnelID         string    `dynamodbav:"tunnel_id,omitempty"`
	TunnelName       string    `dynamodbav:"tunnel_name,omitempty"`
	ServiceID        string    `dynamodbav:"service_id,omitempty"`
	ServiceName      string    `dynamodbav:"service_name,omitempty"`
	WorkerName       string    `dynamodbav:"worker_name,omitempty"`
	WorkerURL        string    `dynamodbav:"worker_url,omitempty"`
	AccessAppID      string    `dynamodbav:"access_app_id,omitempty"`
	AccessAppCreated bool      `dynamodbav:"access_app_created"`
	AccessPolicyMode string    `dynamodbav:"access_policy_mode,omitempty"`
	AccessEmails     []string  `dynamodbav:"access_emails,omitempty"`
	AccessDomain     string    `dynamodbav:"access_domain,omitempty"`
	Hostname         string    `dynamodbav:"hostname,omitempty"`
	PortalURL        string    `dynamodbav:"portal_url,omitempty"`
	CredentialRef    string    `dynamodbav:"credential_ref,omitempty"`
	CreatedAt        time.Time `dynamodbav:"created_at"`
	UpdatedAt        time.Time `dynamodbav:"updated_at"`
}

// toConfigItem converts an api.ProvisioningConfig to a configItem.
func toConfigItem(cfg *api.ProvisioningConfig) *configItem {
	return &configItem{
		InstallationID:   cfg.InstallationID,
		ID:               cfg.ID,
		AccountID:        cfg.AccountID,
		AccountRef:       cfg.AccountRef,
		CompletedStep:    cfg.CompletedStep,
		Status:           string(cfg.Status),
		TunnelID:         cfg.TunnelID,
		TunnelName:       cfg.TunnelName,
		ServiceID:        cfg.ServiceID,
		ServiceName:      cfg.ServiceName,
		WorkerName:       cfg.WorkerName,
		WorkerURL:        cfg.WorkerURL,
		AccessAppID:      cfg.AccessAppID,
		AccessAppCreated: cfg.AccessAppCreated,
		AccessPolicyMode: string(cfg.AccessPolicy.Mode),
		AccessEmails:     cfg.AccessPolicy.Emails,
		AccessDomain:     cfg.AccessPolicy.EmailDomain,
		Hostname:         cfg.Hostname,
		PortalURL:        cfg.PortalURL,
		CredentialRef:    cfg.CredentialRef,
		CreatedAt:        cfg.CreatedAt,
		UpdatedAt:        cfg.UpdatedAt,
	}
}

// toAPIConfig converts a configItem to an api.ProvisioningConfig.
func (i *configItem) toAPIConfig() *api.ProvisioningConfig {
	return &api.ProvisioningConfig{
		InstallationID:   i.InstallationID,
		ID:               i.ID,
		AccountID:        i.AccountID,
		AccountRef:       i.AccountRef,
		CompletedStep:    i.CompletedStep,
		Status:           api.ProvisioningStatus(i.Status),
		TunnelID:         i.TunnelID,
		TunnelName:       i.TunnelName,
		ServiceID:        i.ServiceID,
		ServiceName:      i.ServiceName,
		WorkerName:       i.WorkerName,
		WorkerURL:        i.WorkerURL,
		AccessAppID:      i.AccessAppID,
		AccessAppCreated: i.AccessAppCreated,
		AccessPolicy: api.AccessPolicy{
			Mode:        api.AccessPolicyMode(i.AccessPolicyMode),
			Emails:      i.AccessEmails,
			EmailDomain: i.AccessDomain,
		},
		Hostname:      i.Hostname,
		PortalURL:     i.PortalURL,
		CredentialRef: i.CredentialRef,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

// Load retrieves the config for an installation, or nil when absent.
func (r *ConfigRepository) Load(ctx context.Context, installationID string) (*api.ProvisioningConfig, error) {
	reqLogger := logger.DeriveRequestLogger(ctx, r.logger)
	reqLogger.Debug("calling external service",
		"operation", "DynamoDB.GetItem",
		"table", r.tableName,
		"installation_id", installationID,
	)

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"installation_id": &types.AttributeValueMemberS{Value: installationID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, apperrors.ErrDatabaseError("failed to load provisioning config", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item configItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.ErrInternalError("failed to unmarshal provisioning config", err)
	}
	return item.toAPIConfig(), nil
}

// Create stores a new config record, failing if one already exists.
func (r *ConfigRepository) Create(ctx context.Context, cfg *api.ProvisioningConfig) error {
	av, err := attributevalue.MarshalMap(toConfigItem(cfg))
	if err != nil {
		return apperrors.ErrInternalError("failed to marshal provisioning config", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(installation_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			return apperrors.ErrConflict("provisioning config already exists", nil)
		}
		return apperrors.ErrDatabaseError("failed to create provisioning config", err)
	}
	return nil
}

// Update persists cfg with a compare-and-swap on completed_step.
func (r *ConfigRepository) Update(ctx context.Context, cfg *api.ProvisioningConfig, expectedStep int) error {
	av, err := attributevalue.MarshalMap(toConfigItem(cfg))
	if err != nil {
		return apperrors.ErrInternalError("failed to marshal provisioning config", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(installation_id) AND completed_step = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.Itoa(expectedStep)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			return apperrors.ErrConflict("provisioning config was modified concurrently", nil)
		}
		return apperrors.ErrDatabaseError("failed to update provisioning config", err)
	}
	return nil
}

// Delete removes the config record; deleting an absent record succeeds.
func (r *ConfigRepository) Delete(ctx context.Context, installationID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"installation_id": &types.AttributeValueMemberS{Value: installationID},
		},
	})
	if err != nil {
		return apperrors.ErrDatabaseError("failed to delete provisioning config", err)
	}
	return nil
}
