package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/freshwall/internal/invoice/domain"
)

func (s *Server) PreviewInvoice(c *gin.Context) {
	var req invoicedomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("invoice_number", resp.InvoiceNumber)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GenerateInvoice(c *gin.Context) {
	var req invoicedomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("invoice_number", resp.InvoiceNumber)
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GenerateInvoiceBatch(c *gin.Context) {
	var req invoicedomain.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.GenerateBatch(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	failed := 0
	for _, result := range resp {
		if result.Error != "" {
			failed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resp,
		"meta": gin.H{
			"total":  len(resp),
			"failed": failed,
		},
	})
}

func (s *Server) RenderInvoiceHTML(c *gin.Context) {
	var req invoicedomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	doc, err := s.invoiceSvc.RenderHTML(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeRendered(c, doc, "inline")
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	var req invoicedomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeRendered(c, doc, "attachment")
}

func writeRendered(c *gin.Context, doc *invoicedomain.RenderedDocument, disposition string) {
	if doc.Document != nil {
		c.Set("invoice_number", doc.Document.InvoiceNumber)
		c.Header("X-Invoice-Number", doc.Document.InvoiceNumber)
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}
