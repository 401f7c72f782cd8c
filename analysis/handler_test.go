package analysis_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/airbusgeo/parcel-imagery/common"
	"github.com/airbusgeo/parcel-imagery/interface/provider/sentinelhub"
	"github.com/airbusgeo/parcel-imagery/service/geometry"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

func serve(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	service.NewHandler().ServeHTTP(rec, req)
	return rec
}

func decodeAnalysis(rec *httptest.ResponseRecorder) common.Analysis {
	var a common.Analysis
	Expect(json.Unmarshal(rec.Body.Bytes(), &a)).To(Succeed())
	return a
}

var _ = Describe("Fetch", func() {
	It("stores a DONE analysis with the images and publishes an event", func() {
		rec := serve("POST", "/analysis/u1/p1/fetch/vegetation-state", "")
		Expect(rec.Code).To(Equal(200))
		a := decodeAnalysis(rec)
		Expect(a.Status).To(Equal(common.StatusDONE))
		Expect(a.Type).To(Equal(common.AnalysisTypeVegetationState))
		Expect(a.Images).To(HaveLen(2))
		Expect(a.Images[0].Band).To(Equal(common.SpectralBand("B04")))

		stored, err := backend.Analysis(ctx, "u1", "p1", a.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Images).To(Equal(a.Images))

		Expect(publisher.Messages()).To(HaveLen(1))
		var event common.AnalysisEvent
		Expect(json.Unmarshal(publisher.Messages()[0], &event)).To(Succeed())
		Expect(event.AnalysisID).To(Equal(a.ID))
		Expect(event.Status).To(Equal(common.StatusDONE))
		Expect(indexer.indexed).To(Equal([]string{a.ID}))
	})

	It("returns 404 without calling the provider when the parcel is unknown", func() {
		rec := serve("POST", "/analysis/u1/unknown/fetch/pests", "")
		Expect(rec.Code).To(Equal(404))
		Expect(provider.calls).To(Equal(0))
		Expect(publisher.Messages()).To(BeEmpty())
	})

	It("returns 400 without calling the provider on an unknown analysis type", func() {
		rec := serve("POST", "/analysis/u1/p1/fetch/tomatoes", "")
		Expect(rec.Code).To(Equal(400))
		Expect(provider.calls).To(Equal(0))
	})

	It("forwards the time range", func() {
		rec := serve("POST", "/analysis/u1/p1/fetch/pests?from=2024-05-01&to=2024-06-01T12:00:00Z", "")
		Expect(rec.Code).To(Equal(200))
		Expect(provider.from).To(BeTemporally("==", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
		Expect(provider.to).To(BeTemporally("==", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
	})

	DescribeTable("rejects invalid time ranges",
		func(query string) {
			rec := serve("POST", "/analysis/u1/p1/fetch/pests?"+query, "")
			Expect(rec.Code).To(Equal(400))
			Expect(provider.calls).To(Equal(0))
		},
		Entry("from only", "from=2024-05-01"),
		Entry("to only", "to=2024-05-01"),
		Entry("unparsable", "from=yesterday&to=2024-05-01"),
		Entry("reversed", "from=2024-06-01&to=2024-05-01"),
	)

	DescribeTable("maps the provider errors",
		func(fetchErr error, code int, status common.Status) {
			provider.err = fetchErr
			rec := serve("POST", "/analysis/u1/p1/fetch/water-stress", "")
			Expect(rec.Code).To(Equal(code))
			id := rec.Header().Get("X-Analysis-Id")
			Expect(id).NotTo(BeEmpty())

			a, err := backend.Analysis(ctx, "u1", "p1", id)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Status).To(Equal(status))
			Expect(a.Message).To(ContainSubstring(fetchErr.Error()))
			Expect(a.Images).To(BeEmpty())
			Expect(publisher.Messages()).To(HaveLen(1))
			Expect(indexer.indexed).To(BeEmpty())
		},
		Entry("invalid geometry", fmt.Errorf("ClosedRing: %w", geometry.ErrInvalidGeometry), 400, common.StatusFAILED),
		Entry("authentication", &sentinelhub.AuthenticationError{Err: errors.New("invalid_client")}, 502, common.StatusFAILED),
		Entry("bad request", &sentinelhub.ProviderRequestError{Status: 400, Body: "bad evalscript"}, 502, common.StatusFAILED),
		Entry("unavailable", &sentinelhub.ProviderRequestError{Status: 503, Body: "busy"}, 502, common.StatusRETRY),
		Entry("too many requests", &sentinelhub.ProviderRequestError{Status: 429}, 502, common.StatusRETRY),
		Entry("storage", &sentinelhub.StorageError{Band: "B11", Err: errors.New("disk full")}, 500, common.StatusFAILED),
	)
})

var _ = Describe("Analysis CRUD", func() {
	var created common.Analysis

	BeforeEach(func() {
		rec := serve("POST", "/analysis/u1/p1/create", `{"type":"soil-analysis","result":"clay"}`)
		Expect(rec.Code).To(Equal(200))
		created = decodeAnalysis(rec)
	})

	It("creates a NEW analysis", func() {
		Expect(created.ID).NotTo(BeEmpty())
		Expect(created.Status).To(Equal(common.StatusNEW))
		Expect(created.Result).To(Equal("clay"))
		Expect(created.Images).NotTo(BeNil())
	})

	It("rejects an invalid body", func() {
		Expect(serve("POST", "/analysis/u1/p1/create", `{"type":`).Code).To(Equal(400))
		Expect(serve("POST", "/analysis/u1/p1/create", `{"type":"tomatoes"}`).Code).To(Equal(400))
	})

	It("does not create an analysis on an unknown parcel", func() {
		Expect(serve("POST", "/analysis/u1/p2/create", `{"type":"pests"}`).Code).To(Equal(404))
	})

	It("gets an analysis", func() {
		rec := serve("GET", "/analysis/u1/p1/"+created.ID, "")
		Expect(rec.Code).To(Equal(200))
		Expect(decodeAnalysis(rec).ID).To(Equal(created.ID))
		Expect(serve("GET", "/analysis/u1/p1/unknown", "").Code).To(Equal(404))
		Expect(serve("GET", "/analysis/u2/p1/"+created.ID, "").Code).To(Equal(404))
	})

	It("lists the analyses of the parcel", func() {
		rec := serve("GET", "/analysis/u1/p1/", "")
		Expect(rec.Code).To(Equal(200))
		var analyses []common.Analysis
		Expect(json.Unmarshal(rec.Body.Bytes(), &analyses)).To(Succeed())
		Expect(analyses).To(HaveLen(1))

		Expect(serve("GET", "/analysis/u1/p1/?status=NEW", "").Code).To(Equal(200))
		Expect(serve("GET", "/analysis/u1/p1/?status=DONE", "").Code).To(Equal(404))
		Expect(serve("GET", "/analysis/u1/p1/?status=OK", "").Code).To(Equal(400))
		Expect(serve("GET", "/analysis/u1/p1/?limit=-1", "").Code).To(Equal(400))
		Expect(serve("GET", "/analysis/u1/p9/", "").Code).To(Equal(404))
	})

	It("updates an analysis", func() {
		rec := serve("PUT", "/analysis/u1/p1/"+created.ID, `{"type":"soil-analysis","status":"DONE","result":"sand"}`)
		Expect(rec.Code).To(Equal(200))
		updated := decodeAnalysis(rec)
		Expect(updated.Status).To(Equal(common.StatusDONE))
		Expect(updated.Result).To(Equal("sand"))
		Expect(updated.CreatedAt.Equal(created.CreatedAt)).To(BeTrue())

		Expect(serve("PUT", "/analysis/u1/p1/unknown", `{"type":"pests"}`).Code).To(Equal(404))
	})

	It("deletes an analysis", func() {
		rec := serve("DELETE", "/analysis/u1/p1/"+created.ID, "")
		Expect(rec.Code).To(Equal(200))
		Expect(rec.Body.String()).To(ContainSubstring(created.ID))
		Expect(serve("GET", "/analysis/u1/p1/"+created.ID, "").Code).To(Equal(404))
		Expect(serve("DELETE", "/analysis/u1/p1/"+created.ID, "").Code).To(Equal(404))
	})

	It("gets the last analysis by type", func() {
		fetched := decodeAnalysis(serve("POST", "/analysis/u1/p1/fetch/soil-analysis", ""))
		rec := serve("GET", "/analysis/last_by_type/u1/p1/soil-analysis", "")
		Expect(rec.Code).To(Equal(200))
		Expect(decodeAnalysis(rec).ID).To(BeElementOf(fetched.ID, created.ID))

		Expect(serve("GET", "/analysis/last_by_type/u1/p1/pests", "").Code).To(Equal(404))
		Expect(serve("GET", "/analysis/last_by_type/u1/p1/tomatoes", "").Code).To(Equal(400))
	})
})

var _ = Describe("Parcel", func() {
	It("registers a parcel from a GeoJSON polygon", func() {
		rec := serve("PUT", "/parcel/u1/p2", `{"type":"Polygon","coordinates":[[[1,2],[3,4],[5,6],[1,2]]]}`)
		Expect(rec.Code).To(Equal(200))
		parcel, err := backend.Parcel(ctx, "u1", "p2")
		Expect(err).NotTo(HaveOccurred())
		Expect(parcel.Boundary).To(Equal([]common.Point{{Longitude: 1, Latitude: 2}, {Longitude: 3, Latitude: 4}, {Longitude: 5, Latitude: 6}}))

		rec = serve("GET", "/parcel/u1/p2", "")
		Expect(rec.Code).To(Equal(200))
	})

	It("rejects an invalid geometry", func() {
		Expect(serve("PUT", "/parcel/u1/p2", `{"type":"Point","coordinates":[1,2]}`).Code).To(Equal(400))
		Expect(serve("PUT", "/parcel/u1/p2", `not json`).Code).To(Equal(400))
		Expect(serve("GET", "/parcel/u1/p2", "").Code).To(Equal(404))
	})
})
