package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"portfolio-contact/internal/domain"
)

const (
	pkPrefixDelivery = "DELIVERY#"
	dayLayout        = "2006-01-02"
	ttlDuration      = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client is the delivery ledger backed by a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

// dayPK partitions records by UTC day.
func dayPK(t time.Time) string {
	return pkPrefixDelivery + t.UTC().Format(dayLayout)
}

// deliverySK orders records chronologically within a day.
func deliverySK(t time.Time, correlationID string) string {
	return t.UTC().Format(time.RFC3339Nano) + "#" + correlationID
}

// NewDeliveryRecord stamps keys, timestamp and TTL onto an outcome.
func (c *Client) NewDeliveryRecord(correlationID, outcome, providerID, providerError string) domain.DeliveryRecord {
	now := c.now().UTC()
	return domain.DeliveryRecord{
		PK:            dayPK(now),
		SK:            deliverySK(now, correlationID),
		CorrelationID: correlationID,
		Outcome:       outcome,
		ProviderID:    providerID,
		ProviderError: providerError,
		CreatedAt:     now.Format(time.RFC3339),
		TTL:           now.Add(ttlDuration).Unix(),
	}
}

// RecordDelivery writes one outcome. Existing keys are never overwritten.
func (c *Client) RecordDelivery(ctx context.Context, rec domain.DeliveryRecord) error {
	if rec.PK == "" || rec.SK == "" {
		return errors.New("repository: RecordDelivery: PK and SK are required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                deliveryItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: RecordDelivery: %w", err)
	}
	return nil
}

// ListDeliveries returns up to limit records for the given UTC day, newest first.
func (c *Client) ListDeliveries(ctx context.Context, day time.Time, limit int) ([]domain.DeliveryRecord, error) {
	if limit < 0 || limit > math.MaxInt32 {
		return nil, fmt.Errorf("repository: ListDeliveries: limit %d out of range", limit)
	}
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: dayPK(day)},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: ListDeliveries query: %w", err)
	}

	recs := make([]domain.DeliveryRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := itemToDelivery(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListDeliveries unmarshal: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func deliveryItem(rec domain.DeliveryRecord) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: rec.PK},
		"SK":            &types.AttributeValueMemberS{Value: rec.SK},
		"correlationId": &types.AttributeValueMemberS{Value: rec.CorrelationID},
		"outcome":       &types.AttributeValueMemberS{Value: rec.Outcome},
		"createdAt":     &types.AttributeValueMemberS{Value: rec.CreatedAt},
		"ttl":           &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.TTL, 10)},
	}
	if rec.ProviderID != "" {
		item["providerId"] = &types.AttributeValueMemberS{Value: rec.ProviderID}
	}
	if rec.ProviderError != "" {
		item["providerError"] = &types.AttributeValueMemberS{Value: rec.ProviderError}
	}
	return item
}

func itemToDelivery(item map[string]types.AttributeValue) (domain.DeliveryRecord, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.DeliveryRecord{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.DeliveryRecord{}, err
	}
	outcome, err := strAttr(item, "outcome")
	if err != nil {
		return domain.DeliveryRecord{}, err
	}
	correlationID, _ := strAttr(item, "correlationId")
	createdAt, _ := strAttr(item, "createdAt")
	providerID, _ := strAttr(item, "providerId")
	providerError, _ := strAttr(item, "providerError")
	ttl, _ := int64Attr(item, "ttl")

	return domain.DeliveryRecord{
		PK:            pk,
		SK:            sk,
		CorrelationID: correlationID,
		Outcome:       outcome,
		ProviderID:    providerID,
		ProviderError: providerError,
		CreatedAt:     createdAt,
		TTL:           ttl,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
