// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package websocket pushes sync progress events to connected browsers. The
// Hub implements the sync engine's event sink and runs as a supervised
// service; slow consumers are dropped, never waited on.
package websocket
