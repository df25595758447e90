// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianFactory/services/factorydata"
)

// HealthCheck serves GET /health.
//
// Always returns 200 when the process is up. The body reports whether the
// blob store answered the probe so operators can distinguish a healthy
// process from a healthy stack.
func HealthCheck(loader *factorydata.Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		storageOK := true
		if _, err := loader.Exists(c.Request.Context()); err != nil {
			storageOK = false
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"storage": storageOK,
		})
	}
}
