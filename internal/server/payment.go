// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// pricingHeader carries the machine-readable pricing terms on a 402.
const pricingHeader = "X-PEAC-Pricing"

// paymentRequired answers a request with HTTP 402, the pricing terms in
// both the response header and body.
func paymentRequired(c *gin.Context, pricing PricingConfig) {
	if terms, err := json.Marshal(pricing); err == nil {
		c.Header(pricingHeader, string(terms))
	}
	c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
		"error":   "payment_required",
		"pricing": pricing,
		"message": "Payment or consent required for access",
	})
}
