// Package smartmessage adapts the smartmessage framework onto a NATS
// publish/subscribe broker. It derives broker subjects from message class
// names, keeps exactly one broker subscription per subject no matter how
// many application handlers register against it, and contains every
// failure that happens inside a broker delivery callback so a single bad
// message can never tear down a subscription or the connection.
//
// Service is the application-facing facade: fill a Config (usually from
// the environment via ConfigFromEnv), create a Service, register handlers
// with Subscribe, and call Start. Publish serializes any Go value as JSON
// and sends it under its derived class subject with the standard
// Smart-Message headers; Request performs synchronous round trips for
// request/reply flows.
//
// # Subjects
//
// A message class like "MyApp::UserMessage" maps to the subject
// "smart_message.my_app.user_message": the namespace separator becomes a
// dot, camel-case boundaries become underscores, and everything is
// lower-cased. Subscriptions join the configured queue group, so the
// broker load-balances each message across one member of the group.
//
// # Lifecycles
//
// The adapter reconciles three lifecycles: application handler
// registration (tracked by the Dispatcher), broker subscription handles
// (one per subject, torn down when the last handler for a class is
// removed), and the broker connection itself (reconnection is the NATS
// client's job; the adapter only observes lifecycle events and reports
// state). Disconnect flips Connected to false immediately, tears down all
// subscriptions, and drains in-flight work bounded by the configured
// drain timeout.
package smartmessage
