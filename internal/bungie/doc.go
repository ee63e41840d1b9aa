// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

/*
Package bungie implements the Bungie.net API client stack:

  - Client: raw REST client for the platform endpoints the reconciliation
    engine needs
  - RetryPolicy: client-side rate limiting plus bounded exponential backoff
    with the transient/maintenance/private/fatal error taxonomy
  - BreakerClient: circuit breaker wrapper preventing cascading failures
    when the API is unavailable or slow

Layering is BreakerClient -> Client -> RetryPolicy -> HTTP. Callers hold a
ClientInterface and never see the layering.
*/
package bungie
