package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sample collections seeded by the seed service.
const (
	CollectionUsers         = "Users"
	CollectionOrders        = "Orders"
	CollectionUserDetails   = "UserDetails"
	CollectionUserRelations = "UserRelations"
	CollectionProducts      = "Products"
	CollectionPeople        = "T_Person"
)

type User struct {
	ID          primitive.ObjectID   `bson:"_id"`
	UserID      int32                `bson:"user_id"`
	Username    string               `bson:"username"`
	Email       string               `bson:"email"`
	DetailsID   primitive.ObjectID   `bson:"details_id"`
	OrderIDs    []primitive.ObjectID `bson:"order_ids"`
	RelationIDs []primitive.ObjectID `bson:"relation_ids"`
}

type UserDetails struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      int32              `bson:"user_id"`
	Address     string             `bson:"address"`
	Phone       string             `bson:"phone"`
	Preferences UserPreferences    `bson:"preferences"`
}

type UserPreferences struct {
	Newsletter    bool   `bson:"newsletter"`
	Notifications string `bson:"notifications"`
}

type UserRelation struct {
	ID            primitive.ObjectID `bson:"_id"`
	UserID        int32              `bson:"user_id"`
	RelatedUserID int32              `bson:"related_user_id"`
	RelationType  string             `bson:"relation_type"`
	CreatedAt     time.Time          `bson:"created_at"`
}

type Order struct {
	ID        primitive.ObjectID `bson:"_id"`
	OrderID   int32              `bson:"order_id"`
	UserID    int32              `bson:"user_id"`
	Items     []OrderItem        `bson:"items"`
	Total     float64            `bson:"total"`
	OrderDate time.Time          `bson:"order_date"`
}

type OrderItem struct {
	ProductID   int32   `bson:"product_id"`
	ProductName string  `bson:"product_name"`
	Quantity    int32   `bson:"quantity"`
	Price       float64 `bson:"price"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id"`
	ProductID   int32              `bson:"product_id"`
	ProductName string             `bson:"productName"`
	Category    string             `bson:"category"`
	Price       float64            `bson:"price"`
}

type Person struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
	Age  int32              `bson:"age"`
	City string             `bson:"city,omitempty"`
}
