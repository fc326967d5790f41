// Package iap provides a storefront-agnostic in-app purchase adapter for
// Go applications.
//
// The adapter sits between application code and a platform purchasing
// backend (Apple App Store, Google Play, or a test double). It owns a
// catalog of logical products, delegates purchases to the active
// storefront, and broadcasts every terminal outcome through hooks:
//
//   - The initialization-result channel fires once per Initialize attempt
//   - The purchase-result channel fires once per terminal purchase
//     outcome, including transactions redelivered by restoration
//
// # Quick Start
//
// Create an adapter with a catalog and storefront client:
//
//	import (
//	    "github.com/xraph/iap"
//	    "github.com/xraph/iap/catalog"
//	    "github.com/xraph/iap/hook"
//	    "github.com/xraph/iap/storefront/googleplay"
//	)
//
//	cat := catalog.MustNew(
//	    catalog.Entry{ID: "gold_100", Kind: catalog.KindConsumable},
//	    catalog.Entry{ID: "remove_ads", Kind: catalog.KindNonConsumable},
//	)
//
//	client, err := googleplay.New(ctx, googleplay.Config{
//	    PackageName:     "com.example.game",
//	    CredentialsJSON: credentialsJSON,
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	adapter := iap.New(client,
//	    iap.WithHook(hook.PurchaseListener("grant", grantProduct)),
//	)
//	if err := adapter.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Stop()
//
//	adapter.Initialize(ctx, cat)
//
// Once the initialization-result channel reports success, purchases can
// be started:
//
//	adapter.Buy(ctx, "gold_100")
//
// # Event Delivery
//
// All hooks run on a single dispatch goroutine in registration order.
// Events are broadcast, not queued per listener: a hook registered after
// an event fired does not observe it. Listener errors are logged and
// never stop delivery to the remaining hooks.
//
// # Failure Shape
//
// Every failed purchase, whatever the cause, arrives on the
// purchase-result channel as a Result with Success=false. The Reason
// field is diagnostic text for logs and support tooling, not a contract
// to branch on.
//
// # Transaction Journal
//
// When a journal store is configured, every terminal outcome is recorded
// before the purchase-result channel fires. Stores exist for SQLite,
// PostgreSQL, and MongoDB via the Grove ORM, plus an in-memory default.
//
// # TypeID
//
// Purchases, transactions, and restoration sweeps use TypeID for
// globally unique, type-safe identifiers:
//
//	pur_01h2xcejqtf2nbrexx3vqjhp41  // Purchase ID
//	txn_01h2xcejqtf2nbrexx3vqjhp41  // Transaction ID
//	rst_01h455vb4pex5vsknk084sn02q  // Restore ID
//
// TypeIDs are K-sortable, providing natural time-ordering of journal
// entries.
package iap
