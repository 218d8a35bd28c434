/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googlemodel implements model.Model on top of google.golang.org/genai,
// for Gemini on Vertex AI or the Gemini API.
//
//	client, err := genai.NewClient(ctx, &genai.ClientConfig{
//	    Project:  projectID,
//	    Location: "us-central1",
//	    Backend:  genai.BackendVertexAI,
//	})
//	m, err := googlemodel.New(client, googlemodel.WithModel("gemini-2.5-pro"))
package googlemodel
