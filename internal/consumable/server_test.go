package consumable

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/pantry-tracker/internal/extraction"
)

func multipartBill(filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		extractor = &mockExtractor{}
		service = NewService(db, extractor, nil)
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("POST /api/bills", func() {
		When("a readable bill is uploaded", func() {
			BeforeEach(func() {
				extractor.items = []extraction.RawItem{
					{Name: "Fresh Apple 400gr", PriceCents: 249, Quantity: 2},
				}
			})

			It("should return the resulting consumables", func() {
				body, contentType := multipartBill("bill.jpg", []byte("jpeg-bytes"))
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var consumables []*Consumable
				Expect(json.NewDecoder(resp.Body).Decode(&consumables)).To(Succeed())
				Expect(consumables).To(HaveLen(1))
				Expect(consumables[0].NormalizedKey).To(Equal("apple"))
				Expect(consumables[0].Quantity).To(Equal(2))
				Expect(consumables[0].PriceCents).To(Equal(249))
			})
		})

		When("the uploaded file is empty", func() {
			It("should return status Bad Request", func() {
				body, contentType := multipartBill("bill.jpg", nil)
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})

			It("should not invoke the reconciliation at all", func() {
				extractor.items = []extraction.RawItem{{Name: "Ghost", PriceCents: 1, Quantity: 1}}
				body, contentType := multipartBill("bill.jpg", nil)
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(db.records).To(BeEmpty())
			})
		})

		When("no file field is present", func() {
			It("should return status Bad Request", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.Close()).To(Succeed())

				resp, err := http.Post(ghttpServer.URL()+"/api/bills", writer.FormDataContentType(), body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				extractor.extractErr = io.ErrUnexpectedEOF
			})

			It("should still return an empty list successfully", func() {
				body, contentType := multipartBill("bill.jpg", []byte("jpeg-bytes"))
				resp, err := http.Post(ghttpServer.URL()+"/api/bills", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var consumables []*Consumable
				Expect(json.NewDecoder(resp.Body).Decode(&consumables)).To(Succeed())
				Expect(consumables).To(BeEmpty())
			})
		})
	})

	Describe("POST /api/catalog/seed", func() {
		BeforeEach(func() {
			extractor.items = []extraction.RawItem{
				{Name: "Fresh Apple 400gr", PriceCents: 249, Quantity: 2},
			}
		})

		It("should create zero-quantity placeholders", func() {
			body, contentType := multipartBill("old-invoice.pdf", []byte("pdf-bytes"))
			resp, err := http.Post(ghttpServer.URL()+"/api/catalog/seed", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var consumables []*Consumable
			Expect(json.NewDecoder(resp.Body).Decode(&consumables)).To(Succeed())
			Expect(consumables).To(HaveLen(1))
			Expect(consumables[0].Quantity).To(Equal(0))
			Expect(consumables[0].PriceCents).To(Equal(0))
		})

		It("should reject an empty payload", func() {
			body, contentType := multipartBill("old-invoice.pdf", nil)
			resp, err := http.Post(ghttpServer.URL()+"/api/catalog/seed", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/consumables", func() {
		When("consumables exist", func() {
			BeforeEach(func() {
				db.records["milk"] = &Consumable{ID: "2", NormalizedKey: "milk"}
				db.records["apple"] = &Consumable{ID: "1", NormalizedKey: "apple"}
			})

			It("should return them ordered by normalized key", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/consumables")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var consumables []*Consumable
				Expect(json.NewDecoder(resp.Body).Decode(&consumables)).To(Succeed())
				Expect(consumables).To(HaveLen(2))
				Expect(consumables[0].NormalizedKey).To(Equal("apple"))
				Expect(consumables[1].NormalizedKey).To(Equal("milk"))
			})
		})

		When("no consumables exist", func() {
			It("should return an empty JSON array, not null", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/consumables")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(MatchJSON("[]"))
			})
		})
	})

	Describe("GET /api/consumables/duplicates", func() {
		BeforeEach(func() {
			db.records["apple gala juice red"] = &Consumable{ID: "1", DisplayName: "gala red apple juice", NormalizedKey: "apple gala juice red"}
			db.records["apple gala nectar red"] = &Consumable{ID: "2", DisplayName: "gala red apple nectar", NormalizedKey: "apple gala nectar red"}
		})

		It("should return the similar record groups", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/consumables/duplicates")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var groups [][]*Consumable
			Expect(json.NewDecoder(resp.Body).Decode(&groups)).To(Succeed())
			Expect(groups).To(HaveLen(1))
			Expect(groups[0]).To(HaveLen(2))
		})
	})

	Describe("GET /healthz", func() {
		It("should report ok", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		It("should reject requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/consumables")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept requests with valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/consumables", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")))

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should leave the health endpoint open", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
