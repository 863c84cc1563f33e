/*
Package domain holds the core models of the link service.

It is kept free of I/O: prompts are validated here, analytics events are
defined here, and the retention rules of the analytics log are pure functions
that every store applies the same way.

# Key Entities

  - Link: a shareable URL and the assistant URL derived from one prompt.
  - AnalyticsEvent: one generated or visited link.
  - Stats: the summary served by the analytics dashboard.
*/
package domain
