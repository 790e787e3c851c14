package schema

import (
	"database/sql"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Customer struct {
	ID    int64
	Name  string
	Email sql.NullString
}

type Order struct {
	ID         int64 `db:"primary"`
	Status     string
	CustomerID int64
	PlacedAt   time.Time
	Reference  uuid.UUID
	Coupon     uuid.NullUUID
	Customer   *Customer
	Buyer      *Customer `db:"fk:buyer_ref"`
	Items      []*OrderItem
	Notes      []string
	internal   int
}

type OrderItem struct {
	ID       int64  `db:"column:item_id"`
	OrderID  int64  `db:"order_id"`
	Quantity int32  `db:"qty"`
	Skipped  string `db:"-"`
}

type Category struct {
	ID       int64
	Parent   *Category
	Children []*Category `db:"fk:parent_id"`
}

type legacyTable struct {
	ID int64
}

func (legacyTable) TableName() string { return "tbl_legacy" }

type Address struct {
	Street string
}

type Shipment struct {
	ID      int64
	Address Address
	Ship    *Address
}

func TestIntrospect(t *testing.T) {
	tests := []struct {
		name          string
		inputType     reflect.Type
		expectError   bool
		expectedCols  []string
		expectedTable string
		expectedRels  []string
	}{
		{
			name:          "Order",
			inputType:     reflect.TypeOf(Order{}),
			expectedCols:  []string{"id", "status", "customer_id", "placed_at", "reference", "coupon", "notes"},
			expectedTable: "orders",
			expectedRels:  []string{"Customer", "Buyer", "Items"},
		},
		{
			name:          "OrderPtr",
			inputType:     reflect.TypeOf(&Order{}),
			expectedCols:  []string{"id", "status", "customer_id", "placed_at", "reference", "coupon", "notes"},
			expectedTable: "orders",
			expectedRels:  []string{"Customer", "Buyer", "Items"},
		},
		{
			name:          "TaggedColumns",
			inputType:     reflect.TypeOf(OrderItem{}),
			expectedCols:  []string{"item_id", "order_id", "qty"},
			expectedTable: "order_items",
		},
		{
			name:          "SelfReferential",
			inputType:     reflect.TypeOf(Category{}),
			expectedCols:  []string{"id"},
			expectedTable: "categories",
			expectedRels:  []string{"Parent", "Children"},
		},
		{
			name:          "TableNamer",
			inputType:     reflect.TypeOf(legacyTable{}),
			expectedCols:  []string{"id"},
			expectedTable: "tbl_legacy",
		},
		{
			name:          "ValueStructsIgnored",
			inputType:     reflect.TypeOf(Shipment{}),
			expectedCols:  []string{"id"},
			expectedTable: "shipments",
			expectedRels:  []string{"Ship"},
		},
		{
			name:        "InvalidTypeString",
			inputType:   reflect.TypeOf("string"),
			expectError: true,
		},
		{
			name:        "InvalidTypeSlice",
			inputType:   reflect.TypeOf([]*Order{}),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := Introspect(tt.inputType)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, meta)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, meta)
			assert.Equal(t, tt.expectedCols, meta.Columns())
			assert.Equal(t, tt.expectedTable, meta.TableName)

			var rels []string
			for _, r := range meta.Relations {
				rels = append(rels, r.Name)
			}
			assert.Equal(t, tt.expectedRels, rels)
		})
	}
}

func TestIntrospectRelations(t *testing.T) {
	meta, err := Introspect(reflect.TypeOf(Order{}))
	require.NoError(t, err)

	customer, ok := meta.Relation("Customer")
	require.True(t, ok)
	assert.Equal(t, ToOne, customer.Cardinality)
	assert.Equal(t, reflect.TypeOf(&Customer{}), customer.FieldType)
	assert.Equal(t, reflect.TypeOf(Customer{}), customer.Target)
	assert.Equal(t, "customer_id", customer.ForeignKey)

	buyer, _ := meta.Relation("Buyer")
	assert.Equal(t, "buyer_ref", buyer.ForeignKey)

	items, ok := meta.Relation("Items")
	require.True(t, ok)
	assert.Equal(t, ToMany, items.Cardinality)
	assert.Equal(t, reflect.TypeOf([]*OrderItem{}), items.FieldType)
	assert.Equal(t, reflect.TypeOf(OrderItem{}), items.Target)
	assert.Equal(t, "order_id", items.ForeignKey)

	assert.Len(t, meta.RelationsOfType(reflect.TypeOf(&Customer{})), 2)
	assert.Empty(t, meta.RelationsOfType(reflect.TypeOf(Customer{})))

	require.NotNil(t, meta.PrimaryKey)
	assert.Equal(t, "ID", meta.PrimaryKey.Name)

	cat, err := Introspect(reflect.TypeOf(Category{}))
	require.NoError(t, err)
	children, _ := cat.Relation("Children")
	assert.Equal(t, "parent_id", children.ForeignKey)
	parent, _ := cat.Relation("Parent")
	assert.Equal(t, "parent_id", parent.ForeignKey)
	assert.Equal(t, "id", cat.PrimaryKey.Column)
}

func TestIntrospectIsCached(t *testing.T) {
	first, err := Introspect(reflect.TypeOf(Order{}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, err := Introspect(reflect.TypeOf(&Order{}))
			assert.NoError(t, err)
			assert.Same(t, first, meta)
		}()
	}
	wg.Wait()
}

func TestIsEntityPointer(t *testing.T) {
	assert.True(t, IsEntityPointer(reflect.TypeOf(&Order{})))
	assert.False(t, IsEntityPointer(reflect.TypeOf(Order{})))
	assert.False(t, IsEntityPointer(reflect.TypeOf(&time.Time{})))
	assert.False(t, IsEntityPointer(reflect.TypeOf([]*Order{})))
	assert.False(t, IsEntityPointer(nil))
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		tag      reflect.StructTag
		expected *ParsedTag
	}{
		{"Empty", "FirstName", ``, &ParsedTag{ColumnName: "first_name"}},
		{"Simple", "FirstName", `db:"fname"`, &ParsedTag{ColumnName: "fname"}},
		{"Skip", "FirstName", `db:"-"`, &ParsedTag{Skip: true}},
		{"Primary", "Key", `db:"primary"`, &ParsedTag{ColumnName: "key", Primary: true}},
		{"Options", "Key", `db:"column:k;primary"`, &ParsedTag{ColumnName: "k", Primary: true}},
		{"ForeignKey", "Owner", `db:"fk:owner_ref"`, &ParsedTag{ColumnName: "owner", ForeignKey: "owner_ref"}},
		{"UnknownFlag", "Key", `db:"unique;column:k"`, &ParsedTag{ColumnName: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTag(tt.field, tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseTag("Key", `db:"column:"`)
	assert.Error(t, err)
}

func TestNaming(t *testing.T) {
	cases := map[string]string{
		"ID":          "id",
		"UserID":      "user_id",
		"HTTPServer":  "http_server",
		"FirstName":   "first_name",
		"already_ok":  "already_ok",
		"OAuth2Token": "o_auth2_token",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnakeCase(in), in)
	}

	assert.Equal(t, "order_items", tableName("OrderItem"))
	assert.Equal(t, "people", tableName("Person"))
	assert.Equal(t, "categories", tableName("Category"))
}
