package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/config"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// contactDocument is the stored shape of a contact. The owner is kept in "user" and the creation
// time in "date" so that existing collections can be served unchanged.
type contactDocument struct {
	ID    bson.ObjectID `bson:"_id,omitempty"`
	User  string        `bson:"user"`
	Name  string        `bson:"name"`
	Email *string       `bson:"email,omitempty"`
	Phone *string       `bson:"phone,omitempty"`
	Type  *string       `bson:"type,omitempty"`
	Date  time.Time     `bson:"date"`
}

func (d contactDocument) contact() model.Contact {
	return model.Contact{
		Id:        d.ID.Hex(),
		Owner:     d.User,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Type:      d.Type,
		CreatedAt: d.Date,
	}
}

// Mongo stores contacts as documents in a MongoDB collection.
type Mongo struct {
	client   *mongo.Client
	contacts *mongo.Collection
}

// OpenMongo connects to the MongoDB deployment described by cfg and makes sure the index used
// for listing exists.
func OpenMongo(ctx context.Context, cfg config.Mongo) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s := NewMongo(client, cfg.Database)
	_, err = s.contacts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		if errDisconnect := client.Disconnect(ctx); errDisconnect != nil {
			return nil, errors.Wrapf(err, "could not create index (disconnect failed: %v)", errDisconnect)
		}
		return nil, errors.Wrap(err, "could not create index")
	}
	return s, nil
}

// NewMongo uses the contacts collection of the named database.
func NewMongo(client *mongo.Client, database string) *Mongo {
	return &Mongo{
		client:   client,
		contacts: client.Database(database).Collection("contacts"),
	}
}

func (s *Mongo) FindByOwner(ctx context.Context, owner string) ([]model.Contact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.contacts.Find(ctx, bson.D{{Key: "user", Value: owner}}, opts)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var docs []contactDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.WithStack(err)
	}
	contacts := make([]model.Contact, 0, len(docs))
	for _, doc := range docs {
		contacts = append(contacts, doc.contact())
	}
	return contacts, nil
}

func (s *Mongo) Create(ctx context.Context, contact model.Contact) (model.Contact, error) {
	doc := contactDocument{
		User:  contact.Owner,
		Name:  contact.Name,
		Email: contact.Email,
		Phone: contact.Phone,
		Type:  contact.Type,
		// BSON dates have millisecond precision.
		Date: contact.CreatedAt.UTC().Truncate(time.Millisecond),
	}
	result, err := s.contacts.InsertOne(ctx, doc)
	if err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	id, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return model.Contact{}, errors.Errorf("unexpected inserted id %v", result.InsertedID)
	}
	doc.ID = id
	return doc.contact(), nil
}

func (s *Mongo) FindByID(ctx context.Context, id string) (model.Contact, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.Contact{}, ErrNotFound
	}
	var doc contactDocument
	err = s.contacts.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	return doc.contact(), nil
}

func (s *Mongo) UpdateOwned(ctx context.Context, id string, owner string, update model.ContactUpdate) (model.Contact, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.Contact{}, ErrNotFound
	}
	fields := update.Fields()
	if len(fields) == 0 {
		return FindOwned(ctx, s, id, owner)
	}

	set := bson.D{}
	for _, f := range fields {
		set = append(set, bson.E{Key: f.Name, Value: f.Value})
	}
	filter := bson.D{{Key: "_id", Value: oid}, {Key: "user", Value: owner}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc contactDocument
	err = s.contacts.FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Contact{}, classifyMiss(ctx, s, id)
	}
	if err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	return doc.contact(), nil
}

func (s *Mongo) DeleteOwned(ctx context.Context, id string, owner string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := s.contacts.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "user", Value: owner}})
	if err != nil {
		return errors.WithStack(err)
	}
	if result.DeletedCount == 0 {
		return classifyMiss(ctx, s, id)
	}
	return nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	return errors.WithStack(s.client.Ping(ctx, nil))
}

func (s *Mongo) Close() error {
	return errors.WithStack(s.client.Disconnect(context.Background()))
}

var _ Store = &Mongo{}
