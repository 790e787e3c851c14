package bench

// The Entity chain nests five levels deep with one collection hop:
//
//	Entity.Prop1 -> Entity2.Prop1 -> Entity3.Prop1 -> Entity4.Prop1[] -> Entity5.Prop1 -> Entity6
//	Entity.Prop2 -> Entity4
type Entity struct {
	ID      int64
	Prop1ID int64
	Prop2ID int64
	Prop1   *Entity2
	Prop2   *Entity4
}

type Entity2 struct {
	ID      int64
	Prop1ID int64
	Prop1   *Entity3
}

type Entity3 struct {
	ID      int64
	Prop1ID int64
	Prop1   *Entity4
}

type Entity4 struct {
	ID    int64
	Prop1 []*Entity5 `db:"fk:entity4_id"`
}

type Entity5 struct {
	ID        int64
	Entity4ID int64
	Prop1ID   int64
	Prop1     *Entity6
}

type Entity6 struct {
	ID int64
}

type Store struct {
	ID       int64
	Products []*Product
}

type Product struct {
	ID             int64
	StoreID        int64
	CustomFieldsID int64
	CustomFields   *CustomFields
}

type CustomFields struct {
	ID          int64
	CustomText1 string
	CustomText2 string
}

var (
	entityProp1  = func(e *Entity) **Entity2 { return &e.Prop1 }
	entityProp2  = func(e *Entity) **Entity4 { return &e.Prop2 }
	entity2Prop1 = func(e *Entity2) **Entity3 { return &e.Prop1 }
	entity3Prop1 = func(e *Entity3) **Entity4 { return &e.Prop1 }
	entity4Prop1 = func(e *Entity4) *[]*Entity5 { return &e.Prop1 }
	entity5Prop1 = func(e *Entity5) **Entity6 { return &e.Prop1 }

	storeProducts       = func(s *Store) *[]*Product { return &s.Products }
	productCustomFields = func(p *Product) **CustomFields { return &p.CustomFields }
)
