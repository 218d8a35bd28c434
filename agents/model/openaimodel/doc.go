/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaimodel implements model.Model on top of the OpenAI Chat
// Completions API, or any endpoint that speaks it.
package openaimodel
