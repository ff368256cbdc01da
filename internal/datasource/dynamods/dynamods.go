// Package dynamods is a row store over a single DynamoDB table. The table
// has partition key "tbl" and sort key "row"; the record lives in the
// "data" map attribute.
package dynamods

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
)

// Type is the configuration type name.
const Type = "dynamo"

// Attribute names of the backing table.
const (
	TableAttr = "tbl"
	RowAttr   = "row"
	DataAttr  = "data"
)

// Schema is the backend configuration schema.
var Schema = config.Schema{
	"init": config.Subtree(config.Schema{
		"table":    config.Required(config.IsType(config.KindString)),
		"region":   config.WithDefault("us-east-1", config.IsType(config.KindString)),
		"endpoint": config.Optional(config.IsType(config.KindString)),
		"profile":  config.Optional(config.IsType(config.KindString)),
	}),
}

// API is the subset of the DynamoDB client the store calls.
type API interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	ExecuteStatement(ctx context.Context, in *dynamodb.ExecuteStatementInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ExecuteStatementOutput, error)
}

// Store is a RowSource over one DynamoDB table.
type Store struct {
	name   string
	table  string
	client API
	opts   datasource.Options
}

var _ datasource.RowSource = (*Store)(nil)

// Open is the factory opener. The table must already exist.
func Open(name string, cfg config.Tree, opts datasource.Options) (datasource.Source, error) {
	if _, err := cfg.Validate(Schema, true); err != nil {
		return nil, err
	}
	section := cfg.Sub("init")
	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(section.String("us-east-1", "region")),
	}
	if profile := section.String("", "profile"); profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	endpoint := section.String("", "endpoint")
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	table := section.String("", "table")
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}); err != nil {
		return nil, datasource.Unavailable(Type, err)
	}
	opts.Log().Debug("connected to dynamodb", "source", name, "table", table)
	return New(name, table, client, opts), nil
}

// New returns a store over an existing client.
func New(name, table string, client API, opts datasource.Options) *Store {
	return &Store{name: name, table: table, client: client, opts: opts}
}

func (s *Store) Kind() string { return Type }

func (s *Store) Close() error { return nil }

func itemKey(k datasource.RowKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		TableAttr: &types.AttributeValueMemberS{Value: k.Table},
		RowAttr:   &types.AttributeValueMemberS{Value: k.Row},
	}
}

// Tables lists the distinct table names present in the backing table.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		ProjectionExpression:     aws.String("#t"),
		ExpressionAttributeNames: map[string]string{"#t": TableAttr},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s.table, err)
		}
		for _, item := range page.Items {
			if v, ok := item[TableAttr].(*types.AttributeValueMemberS); ok && !seen[v.Value] {
				seen[v.Value] = true
				out = append(out, v.Value)
			}
		}
	}
	return out, nil
}

func (s *Store) rows(ctx context.Context, table string) ([]string, error) {
	var out []string
	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("#t = :t"),
		ProjectionExpression:     aws.String("#r"),
		ExpressionAttributeNames: map[string]string{"#t": TableAttr, "#r": RowAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: table},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing rows of %s: %w", table, err)
		}
		for _, item := range page.Items {
			if v, ok := item[RowAttr].(*types.AttributeValueMemberS); ok {
				out = append(out, v.Value)
			}
		}
	}
	return out, nil
}

func (s *Store) resolve(ctx context.Context, spec datasource.Spec[datasource.RowKey]) ([]datasource.RowKey, error) {
	ks := datasource.NewListing(
		func() ([]string, error) { return s.Tables(ctx) },
		func(table string) ([]string, error) { return s.rows(ctx, table) },
	)
	keys, err := datasource.ResolveRows(spec, ks)
	if err != nil {
		return nil, err
	}
	if err := ks.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) get(ctx context.Context, k datasource.RowKey) (datasource.Record, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            itemKey(k),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", k, err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	rec := datasource.Record{}
	if data, ok := out.Item[DataAttr].(*types.AttributeValueMemberM); ok {
		if err := attributevalue.UnmarshalMap(data.Value, &rec); err != nil {
			return nil, false, fmt.Errorf("decoding %s: %w", k, err)
		}
	}
	return rec, true, nil
}

func (s *Store) put(ctx context.Context, k datasource.RowKey, rec datasource.Record) error {
	data, err := attributevalue.MarshalMap(map[string]any(rec))
	if err != nil {
		return fmt.Errorf("encoding %s: %w", k, err)
	}
	item := itemKey(k)
	item[DataAttr] = &types.AttributeValueMemberM{Value: data}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item}); err != nil {
		return fmt.Errorf("writing %s: %w", k, err)
	}
	return nil
}

func (s *Store) CreateRow(ctx context.Context, spec datasource.Spec[datasource.RowKey], value datasource.Record) ([]datasource.RowKey, error) {
	keys, err := s.resolve(ctx, spec)
	var applied []datasource.RowKey
	for _, k := range keys {
		if err = s.put(ctx, k, value); err != nil {
			break
		}
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "row", "create", len(applied), err)
	return applied, err
}

func (s *Store) ReadRow(ctx context.Context, spec datasource.Spec[datasource.RowKey]) (map[datasource.RowKey]datasource.Record, error) {
	keys, err := s.resolve(ctx, spec)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "row", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.RowKey]datasource.Record)
	for _, k := range keys {
		rec, ok, err := s.get(ctx, k)
		if err != nil {
			s.opts.Metrics.Observe(s.name, "row", "read", len(out), err)
			return nil, err
		}
		if ok {
			out[k] = rec
		}
	}
	s.opts.Metrics.Observe(s.name, "row", "read", len(out), nil)
	return out, nil
}

func (s *Store) UpdateRow(ctx context.Context, spec datasource.Spec[datasource.RowKey], value datasource.Record) ([]datasource.RowKey, error) {
	keys, err := s.resolve(ctx, spec)
	var applied []datasource.RowKey
	for _, k := range keys {
		var rec datasource.Record
		if rec, _, err = s.get(ctx, k); err != nil {
			break
		}
		if rec == nil {
			rec = datasource.Record{}
		}
		rec.Merge(value)
		if err = s.put(ctx, k, rec); err != nil {
			break
		}
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "row", "update", len(applied), err)
	return applied, err
}

func (s *Store) DeleteRow(ctx context.Context, spec datasource.Spec[datasource.RowKey]) (int, error) {
	keys, err := s.resolve(ctx, spec)
	n := 0
	for _, k := range keys {
		var out *dynamodb.DeleteItemOutput
		out, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:    aws.String(s.table),
			Key:          itemKey(k),
			ReturnValues: types.ReturnValueAllOld,
		})
		if err != nil {
			err = fmt.Errorf("deleting %s: %w", k, err)
			break
		}
		if len(out.Attributes) > 0 {
			n++
		}
	}
	s.opts.Metrics.Observe(s.name, "row", "delete", n, err)
	return n, err
}

// Query runs a PartiQL statement with positional parameters.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]datasource.Record, error) {
	params := make([]types.AttributeValue, len(args))
	for i, a := range args {
		av, err := attributevalue.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encoding parameter %d: %w", i, err)
		}
		params[i] = av
	}
	in := &dynamodb.ExecuteStatementInput{Statement: aws.String(query)}
	if len(params) > 0 {
		in.Parameters = params
	}

	var recs []datasource.Record
	for {
		out, err := s.client.ExecuteStatement(ctx, in)
		if err != nil {
			s.opts.Metrics.Observe(s.name, "row", "query", len(recs), err)
			return nil, fmt.Errorf("executing statement: %w", err)
		}
		for _, item := range out.Items {
			rec := datasource.Record{}
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return nil, fmt.Errorf("decoding result: %w", err)
			}
			recs = append(recs, rec)
		}
		if out.NextToken == nil {
			break
		}
		in.NextToken = out.NextToken
	}
	s.opts.Metrics.Observe(s.name, "row", "query", len(recs), nil)
	return recs, nil
}
