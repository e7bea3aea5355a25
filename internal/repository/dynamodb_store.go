package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"healthkinator/internal/domain"
)

const (
	pkReports = "REPORT"
	pkProfile = "PROFILE"
	skProfile = "PROFILE"
	skPrefix  = "REPORT#"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps reports and the profile in a single DynamoDB table.
// Reports live under one partition keyed by ID so Save replaces by ID;
// ordering is recovered from the created_at attribute at read time.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoStore creates a store over the given table.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

func (s *DynamoStore) Save(ctx context.Context, r domain.Report) error {
	item, err := reportItem(r)
	if err != nil {
		return fmt.Errorf("repository: Save encode report: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

func (s *DynamoStore) List(ctx context.Context) ([]domain.Report, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkReports},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: List query: %w", err)
	}

	reports := make([]domain.Report, 0, len(out.Items))
	for _, item := range out.Items {
		r, err := itemToReport(item)
		if err != nil {
			// Reads are best-effort, an undecodable item never hides
			// the rest of the history.
			continue
		}
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *DynamoStore) Clear(ctx context.Context) error {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkReports},
		},
		ProjectionExpression: aws.String("PK, SK"),
	})
	if err != nil {
		return fmt.Errorf("repository: Clear query: %w", err)
	}
	for _, item := range out.Items {
		if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			},
		}); err != nil {
			return fmt.Errorf("repository: Clear delete: %w", err)
		}
	}
	return nil
}

func (s *DynamoStore) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":     &types.AttributeValueMemberS{Value: pkProfile},
			"SK":     &types.AttributeValueMemberS{Value: skProfile},
			"name":   &types.AttributeValueMemberS{Value: p.Name},
			"avatar": &types.AttributeValueMemberS{Value: p.Avatar},
		},
	}); err != nil {
		return fmt.Errorf("repository: SaveProfile: %w", err)
	}
	return nil
}

func (s *DynamoStore) LoadProfile(ctx context.Context) (domain.UserProfile, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkProfile},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
	})
	if err != nil {
		// Best-effort read, an unreachable table falls back to the
		// default profile.
		return domain.DefaultProfile(), nil
	}
	if out == nil || len(out.Item) == 0 {
		return domain.DefaultProfile(), nil
	}
	name, err := strAttr(out.Item, "name")
	if err != nil || strings.TrimSpace(name) == "" {
		return domain.DefaultProfile(), nil
	}
	avatar, _ := strAttr(out.Item, "avatar") // allow empty
	if avatar == "" {
		avatar = domain.DefaultProfile().Avatar
	}
	return domain.UserProfile{Name: name, Avatar: avatar}, nil
}

func reportItem(r domain.Report) (map[string]types.AttributeValue, error) {
	transcript, err := json.Marshal(r.Transcript)
	if err != nil {
		return nil, err
	}
	suggestions, err := json.Marshal(r.Diagnosis.Suggestions)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: pkReports},
		"SK":          &types.AttributeValueMemberS{Value: skPrefix + r.ID},
		"id":          &types.AttributeValueMemberS{Value: r.ID},
		"created_at":  &types.AttributeValueMemberS{Value: r.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"condition":   &types.AttributeValueMemberS{Value: r.Diagnosis.Condition},
		"confidence":  &types.AttributeValueMemberN{Value: strconv.FormatFloat(r.Diagnosis.Confidence, 'f', -1, 64)},
		"report":      &types.AttributeValueMemberS{Value: r.Diagnosis.Report},
		"suggestions": &types.AttributeValueMemberS{Value: string(suggestions)},
		"transcript":  &types.AttributeValueMemberS{Value: string(transcript)},
	}, nil
}

func itemToReport(item map[string]types.AttributeValue) (domain.Report, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.Report{}, err
	}
	createdRaw, err := strAttr(item, "created_at")
	if err != nil {
		return domain.Report{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return domain.Report{}, fmt.Errorf("parse created_at: %w", err)
	}
	condition, err := strAttr(item, "condition")
	if err != nil {
		return domain.Report{}, err
	}
	confidence, err := floatAttr(item, "confidence")
	if err != nil {
		return domain.Report{}, err
	}
	reportText, err := strAttr(item, "report")
	if err != nil {
		return domain.Report{}, err
	}

	var suggestions []string
	if raw, err := strAttr(item, "suggestions"); err == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &suggestions); err != nil {
			return domain.Report{}, fmt.Errorf("decode suggestions: %w", err)
		}
	}
	var transcript []domain.Turn
	if raw, err := strAttr(item, "transcript"); err == nil && raw != "" {
		if err := json.Unmarshal([]byte(raw), &transcript); err != nil {
			return domain.Report{}, fmt.Errorf("decode transcript: %w", err)
		}
	}

	return domain.Report{
		ID:        id,
		CreatedAt: created,
		Diagnosis: domain.Diagnosis{
			Condition:   condition,
			Confidence:  confidence,
			Report:      reportText,
			Suggestions: suggestions,
		},
		Transcript: transcript,
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

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
