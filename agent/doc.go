// Copyright 2024 AgentOrch Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent provides the read-only agent registry used by the orchestrator.

# Overview

A Registry maps agent names to their configuration: the model provider,
system prompt, sampling parameters, tool declarations and capability tags.
It is built once, validated up front, and never mutated afterwards, so it
can be shared by any number of concurrent readers. Reloading configuration
means building a new Registry and swapping it in.

# Lookup and filtering

  - Lookup returns a copy of one agent, or a NOT_FOUND error listing the
    valid names.
  - FilterByCapability matches declared tags, capability groups, and
    substrings of the name or description.
  - FilterByProvider matches the provider exactly.
  - Recommend returns the agents configured for a task type.

# Library files

LoadLibrary and ParseLibrary read the YAML agent library shipped under
configs/agents.yaml.
*/
package agent
