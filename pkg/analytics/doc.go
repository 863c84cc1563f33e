/*
Package analytics counts generated and visited links.

A Service records events into a ports.EventStore, keeps the log capped,
summarizes it for the dashboard and prunes old events from a janitor loop.
The summary itself is the pure function Summarize.
*/
package analytics
