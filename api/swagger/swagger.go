package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Fee Ledger API",
        "description": "Fee schedules, student ledgers, payments and waivers",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "FeeCatalog",
            "description": "Fee schedules per class and term"
        },
        {
            "name": "Fees",
            "description": "Student ledger entries"
        },
        {
            "name": "Payments",
            "description": "Payment journal and receipts"
        },
        {
            "name": "Waivers",
            "description": "Discounts and scholarships"
        },
        {
            "name": "Events",
            "description": "Inbound enrollment events"
        }
    ],
    "paths": {
        "/fee-catalog": {
            "get": {
                "tags": [
                    "FeeCatalog"
                ],
                "summary": "List fee schedules",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "classId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "termId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "frequency",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "pageSize",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "FeeCatalog"
                ],
                "summary": "Create a fee schedule for a class and term",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateFeeCatalogRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Duplicate schedule",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fee-catalog/{id}": {
            "get": {
                "tags": [
                    "FeeCatalog"
                ],
                "summary": "Get a fee schedule",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "FeeCatalog"
                ],
                "summary": "Correct the amounts or dates of a fee schedule",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateFeeCatalogRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fee-catalog/{id}/active": {
            "patch": {
                "tags": [
                    "FeeCatalog"
                ],
                "summary": "Activate or deactivate a fee schedule",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SetFeeCatalogActiveRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/students/{studentId}/fees": {
            "get": {
                "tags": [
                    "Fees"
                ],
                "summary": "List every fee entry of a student",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/students/{studentId}/fees/unpaid": {
            "get": {
                "tags": [
                    "Fees"
                ],
                "summary": "List unpaid fee entries with the outstanding balance",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/students/{studentId}/fees/statement": {
            "get": {
                "tags": [
                    "Fees"
                ],
                "summary": "Download a fee statement",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "text/csv",
                    "application/pdf",
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
                ],
                "parameters": [
                    {
                        "name": "studentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf",
                            "xlsx"
                        ],
                        "default": "csv"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Statement file",
                        "schema": {
                            "type": "file"
                        }
                    }
                }
            }
        },
        "/fees/{id}": {
            "get": {
                "tags": [
                    "Fees"
                ],
                "summary": "Get a fee entry with its payments, waivers and history",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fees/{id}/waive": {
            "post": {
                "tags": [
                    "Fees"
                ],
                "summary": "Waive the remaining balance of a fee entry",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/OverrideRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fees/{id}/reopen": {
            "post": {
                "tags": [
                    "Fees"
                ],
                "summary": "Reopen a paid or waived fee entry",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/OverrideRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fees/reminders": {
            "post": {
                "tags": [
                    "Fees"
                ],
                "summary": "Flag unpaid entries for payment reminders",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fees/refresh-overdue": {
            "post": {
                "tags": [
                    "Fees"
                ],
                "summary": "Recompute late fees and statuses of unpaid entries",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fees/{id}/payments": {
            "get": {
                "tags": [
                    "Payments"
                ],
                "summary": "List the payment journal of a fee entry",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Record a payment against a fee entry",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RecordPaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid amount",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Concurrent modification",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fees/{id}/adjustments": {
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Record a signed correction to the amount paid",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/RecordAdjustmentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/fees/{id}/reconcile": {
            "get": {
                "tags": [
                    "Payments"
                ],
                "summary": "Compare the payment journal with the entry total",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/payments/{receipt}": {
            "get": {
                "tags": [
                    "Payments"
                ],
                "summary": "Look up a journal row by receipt number",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "receipt",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/payments/{receipt}/receipt.pdf": {
            "get": {
                "tags": [
                    "Payments"
                ],
                "summary": "Download a payment receipt",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "receipt",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Receipt PDF",
                        "schema": {
                            "type": "file"
                        }
                    }
                }
            }
        },
        "/fees/{id}/waivers": {
            "get": {
                "tags": [
                    "Waivers"
                ],
                "summary": "List waivers of a fee entry",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Waivers"
                ],
                "summary": "Grant a waiver against a fee entry",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GrantWaiverRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/waivers/{id}": {
            "delete": {
                "tags": [
                    "Waivers"
                ],
                "summary": "Revoke a waiver",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "reopen",
                        "in": "query",
                        "type": "boolean"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "Entry is settled; reopen required",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/events/enrollment-activated": {
            "post": {
                "tags": [
                    "Events"
                ],
                "summary": "Queue fee provisioning for an activated enrollment",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/EnrollmentActivatedRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "Event queue full",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "CreateFeeCatalogRequest": {
            "type": "object",
            "required": [
                "class_id",
                "term_id",
                "due_date"
            ],
            "properties": {
                "class_id": {
                    "type": "string"
                },
                "term_id": {
                    "type": "string"
                },
                "frequency": {
                    "type": "string",
                    "enum": [
                        "monthly",
                        "quarterly",
                        "semester",
                        "annual"
                    ]
                },
                "tuition_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "library_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "lab_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "sports_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "transport_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "other_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "due_date": {
                    "type": "string",
                    "format": "date"
                },
                "late_fee_amount": {
                    "type": "string",
                    "example": "500.00"
                },
                "late_fee_grace_days": {
                    "type": "integer"
                },
                "description": {
                    "type": "string"
                }
            }
        },
        "UpdateFeeCatalogRequest": {
            "type": "object",
            "required": [
                "due_date"
            ],
            "properties": {
                "tuition_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "library_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "lab_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "sports_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "transport_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "other_fee": {
                    "type": "string",
                    "example": "500.00"
                },
                "due_date": {
                    "type": "string",
                    "format": "date"
                },
                "late_fee_amount": {
                    "type": "string",
                    "example": "500.00"
                },
                "late_fee_grace_days": {
                    "type": "integer"
                },
                "description": {
                    "type": "string"
                }
            }
        },
        "SetFeeCatalogActiveRequest": {
            "type": "object",
            "required": [
                "active"
            ],
            "properties": {
                "active": {
                    "type": "boolean"
                }
            }
        },
        "OverrideRequest": {
            "type": "object",
            "required": [
                "reason"
            ],
            "properties": {
                "reason": {
                    "type": "string"
                }
            }
        },
        "RecordPaymentRequest": {
            "type": "object",
            "required": [
                "amount",
                "payment_method"
            ],
            "properties": {
                "amount": {
                    "type": "string",
                    "example": "500.00"
                },
                "payment_method": {
                    "type": "string",
                    "enum": [
                        "cash",
                        "bank_transfer",
                        "online",
                        "cheque",
                        "card"
                    ]
                },
                "payment_date": {
                    "type": "string",
                    "format": "date"
                },
                "transaction_id": {
                    "type": "string"
                },
                "remarks": {
                    "type": "string"
                }
            }
        },
        "RecordAdjustmentRequest": {
            "type": "object",
            "required": [
                "amount",
                "reason"
            ],
            "properties": {
                "amount": {
                    "type": "string",
                    "example": "-25.00"
                },
                "payment_method": {
                    "type": "string",
                    "enum": [
                        "cash",
                        "bank_transfer",
                        "online",
                        "cheque",
                        "card"
                    ]
                },
                "reason": {
                    "type": "string"
                }
            }
        },
        "GrantWaiverRequest": {
            "type": "object",
            "required": [
                "waiver_type",
                "reason"
            ],
            "properties": {
                "waiver_type": {
                    "type": "string",
                    "enum": [
                        "scholarship",
                        "financial_aid",
                        "merit",
                        "sibling",
                        "other"
                    ]
                },
                "amount": {
                    "type": "string",
                    "example": "500.00"
                },
                "percentage": {
                    "type": "string",
                    "example": "50"
                },
                "reason": {
                    "type": "string"
                }
            }
        },
        "EnrollmentActivatedRequest": {
            "type": "object",
            "required": [
                "student_id",
                "class_id",
                "term_id"
            ],
            "properties": {
                "enrollment_id": {
                    "type": "string"
                },
                "student_id": {
                    "type": "string"
                },
                "class_id": {
                    "type": "string"
                },
                "term_id": {
                    "type": "string"
                },
                "occurred_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
