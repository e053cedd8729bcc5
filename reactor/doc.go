// Copyright (c) 2025
// Author: mrylov <mrylov@gmail.com>

// Package reactor provides the readiness facility behind the session server: level-triggered epoll on Linux, kqueue on darwin and the BSDs, and an unsupported-platform stub.
package reactor
