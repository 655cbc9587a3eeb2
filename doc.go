// Copyright 2026 The Ichor Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/volt-software/ichor-go

/*
Package ichor is a service-oriented application runtime for building
long-lived, single-process systems composed of many small, interdependent
services that communicate via events and direct interface calls.

# Overview

A Kernel runs one scheduler loop per OS thread. The loop owns an event
queue, a service registry, a lifecycle manager per service, a dependency
graph, a coroutine scheduler, and the handler tables that route events to
listeners, completion/error callbacks, interceptors, and dependency
trackers. Events are ordered by priority (lower numeric value dispatches
first) and, within a priority, by enqueue order.

# Quick start

	k := ichor.NewKernel("greeter", ichor.DefaultConfig())
	handle, err := k.CreateService(NewGreeterConstructor(), ichor.WithInterfaces(GreeterInterfaceID))
	if err != nil {
	    log.Fatal(err)
	}
	_ = handle
	go func() {
	    <-time.After(time.Second)
	    k.Quit()
	}()
	if err := k.Start(context.Background(), true); err != nil {
	    log.Fatal(err)
	}

Services are either constructor-injected (dependencies are supplied as
constructor arguments) or advanced (dependencies arrive and leave via
AddDependency/RemoveDependency callbacks after construction). See
Constructor and Advanced.

# Package layout

The kernel is assembled from internal packages in dependency order
(leaves first): internal/queue (the event queue), internal/handler (the
handler tables), internal/lifecycle (dependency graph + state machine),
internal/registry (the service registry), internal/coroutine (suspension
and resumption), internal/waiter (the event waiter table). internal/klog,
internal/kconfig and internal/kmetrics are the ambient logging,
configuration and metrics layers. internal/supervisor hosts one or more
Kernels under a github.com/thejerf/suture/v4 supervision tree.
*/
package ichor
