// Package aggregates implements the training write boundaries on gorm. Each write runs in
// its own transaction through a TxRunner, is traced, and is reported to Hooks.
package aggregates
