// Package mongo implements store.Store on MongoDB using the official v2
// driver. Suitable for distributed deployments that prefer a document
// store for raw pages and snapshots.
//
// The caller may own the *mongo.Database lifecycle:
//
//	client, _ := mongo.Connect(options.Client().ApplyURI(uri))
//	store := mongostore.New(client.Database("berth"))
//	store.Migrate(ctx)
//
// or let Open connect and disconnect the client.
package mongo
