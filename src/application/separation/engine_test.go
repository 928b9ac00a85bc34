package separation_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"staytuned/src/application/device"
	"staytuned/src/application/integration_test/dummy"
	"staytuned/src/application/separation"
	"staytuned/src/application/wave"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Engine", func() {
	var (
		dummyExecutor *dummy.MediaExecutor
		engine        separation.Engine

		inputDir  string
		outputDir string
		inputPath string
	)

	makeInput := func(sampleRate int, channels int, frames int) {
		channelData := make([][]float32, channels)
		for i := range channelData {
			samples := make([]float32, frames)
			for j := range samples {
				samples[j] = float32(j%100) / 100.0
			}
			channelData[i] = samples
		}

		waveform := wave.Waveform{SampleRate: sampleRate, Channels: channelData}
		Expect(wave.WriteFile(inputPath, waveform)).To(Succeed())
	}

	BeforeEach(func() {
		By("Instantiating all mocks", func() {
			dummyExecutor = dummy.NewDummyMediaExecutor()
		})

		By("Creating test directories", func() {
			var err error
			inputDir, err = os.MkdirTemp(workingDir, "input-*")
			Expect(err).NotTo(HaveOccurred())
			outputDir, err = os.MkdirTemp(workingDir, "output-*")
			Expect(err).NotTo(HaveOccurred())

			inputPath = filepath.Join(inputDir, "cool_jamz.wav")
		})

		By("Instantiating the engine", func() {
			var err error
			engine, err = separation.NewEngine(
				workingDir,
				"/somewhere/ffmpeg",
				"/somewhere/demucs",
				separation.HTDemucs,
				device.Descriptor{Backend: device.CPU, Threads: 4},
				dummyExecutor,
			)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	AfterEach(func() {
		_ = os.RemoveAll(inputDir)
		_ = os.RemoveAll(outputDir)
	})

	Describe("Happy path", func() {
		var results separation.StemPaths

		BeforeEach(func() {
			makeInput(100, 2, 500)

			var err error
			results, err = engine.Separate(context.Background(), inputPath, outputDir, separation.Window{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("produces the four model stems plus the instrumental", func() {
			Expect(results).To(HaveLen(5))

			for _, stem := range []separation.Stem{
				separation.StemDrums,
				separation.StemBass,
				separation.StemOther,
				separation.StemVocals,
				separation.StemInstrumental,
			} {
				stemPath, ok := results[stem]
				Expect(ok).To(BeTrue(), string(stem))
				Expect(stemPath).To(Equal(filepath.Join(outputDir, fmt.Sprintf("cool_jamz_%s.wav", stem))))
				Expect(stemPath).To(BeAnExistingFile())
			}
		})

		It("scales each stem the way the model does", func() {
			drums, err := wave.ReadFile(results[separation.StemDrums])
			Expect(err).NotTo(HaveOccurred())

			Expect(drums.Frames()).To(Equal(500))
			Expect(drums.Channels[0][50]).To(BeNumerically("~", 0.5*0.1, 1e-6))
		})

		It("derives the instrumental as the sum of the non-vocal stems", func() {
			instrumental, err := wave.ReadFile(results[separation.StemInstrumental])
			Expect(err).NotTo(HaveOccurred())

			drums, err := wave.ReadFile(results[separation.StemDrums])
			Expect(err).NotTo(HaveOccurred())
			bass, err := wave.ReadFile(results[separation.StemBass])
			Expect(err).NotTo(HaveOccurred())
			other, err := wave.ReadFile(results[separation.StemOther])
			Expect(err).NotTo(HaveOccurred())

			for channel := 0; channel < 2; channel++ {
				for frame := 0; frame < instrumental.Frames(); frame += 37 {
					expected := drums.Channels[channel][frame] +
						bass.Channels[channel][frame] +
						other.Channels[channel][frame]
					Expect(instrumental.Channels[channel][frame]).To(BeNumerically("~", expected, 1e-6))
				}
			}
		})
	})

	Describe("Mono input", func() {
		It("produces stereo stems", func() {
			makeInput(100, 1, 300)

			results, err := engine.Separate(context.Background(), inputPath, outputDir, separation.Window{})
			Expect(err).NotTo(HaveOccurred())

			vocals, err := wave.ReadFile(results[separation.StemVocals])
			Expect(err).NotTo(HaveOccurred())

			Expect(vocals.Channels).To(HaveLen(2))
			Expect(vocals.Channels[0]).To(Equal(vocals.Channels[1]))
		})
	})

	Describe("Windowed extraction", func() {
		It("separates only the requested slice", func() {
			makeInput(100, 2, 1000)

			window := separation.Window{Start: 2 * time.Second, Duration: 3 * time.Second}
			results, err := engine.Separate(context.Background(), inputPath, outputDir, window)
			Expect(err).NotTo(HaveOccurred())

			drums, err := wave.ReadFile(results[separation.StemDrums])
			Expect(err).NotTo(HaveOccurred())

			Expect(drums.Frames()).To(Equal(300))
		})
	})

	Describe("Overlong input", func() {
		It("caps the track before the window applies", func() {
			// 650 seconds at a 10Hz sample rate
			makeInput(10, 2, 6500)

			window := separation.Window{Duration: 640 * time.Second}
			results, err := engine.Separate(context.Background(), inputPath, outputDir, window)
			Expect(err).NotTo(HaveOccurred())

			drums, err := wave.ReadFile(results[separation.StemDrums])
			Expect(err).NotTo(HaveOccurred())

			// the 600 second cap wins over the 640 second window
			Expect(drums.Frames()).To(Equal(6000))
		})
	})

	Describe("Model failure", func() {
		It("fails the whole call and writes no partial stems", func() {
			makeInput(100, 2, 300)
			dummyExecutor.DemucsUnavailable = true

			_, err := engine.Separate(context.Background(), inputPath, outputDir, separation.Window{})
			Expect(err).To(HaveOccurred())

			dirEntries, err := os.ReadDir(outputDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(dirEntries).To(BeEmpty())
		})
	})

	Describe("Prepare failure", func() {
		It("fails when the input cannot be decoded", func() {
			dummyExecutor.Unavailable = true
			makeInput(100, 2, 300)

			_, err := engine.Separate(context.Background(), inputPath, outputDir, separation.Window{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Cancelled context", func() {
		It("aborts before running the model", func() {
			makeInput(100, 2, 300)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := engine.Separate(ctx, inputPath, outputDir, separation.Window{})
			Expect(err).To(HaveOccurred())
		})
	})
})
